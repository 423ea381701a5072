package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/larsfn/minterra/internal/api"
)

func newServeCmd(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the broker server",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			cfg, err := f.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if addr == "" {
				addr = cfg.Listen
			}

			auditor, err := f.BuildAuditor(cfg)
			if err != nil {
				return fmt.Errorf("building auditor: %w", err)
			}
			defer func() {
				_ = auditor.Close()
			}()

			log.Info().Msg("Initializing upstream clients...")
			svc, store, err := f.BuildService(cmd.Context(), cfg, auditor)
			if err != nil {
				return fmt.Errorf("initializing broker: %w", err)
			}
			log.Info().Int("mappings", store.Len()).Msg("credential mapping loaded")

			srv := api.NewServer(svc, auditor)
			server := &http.Server{
				Addr:    addr,
				Handler: srv.Routes([]byte(cfg.AdminKey)),
			}

			go func() {
				log.Info().Msgf("Starting server on %s...", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("Server crashed")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			log.Info().Msg("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}

			log.Info().Msg("Server exited")
			return nil
		},
	}

	cmd.Flags().String("addr", "", "address to listen on (overrides config)")
	f.bindConfigFlag(cmd.Flags())

	return cmd
}

func init() {
	rootCmd.AddCommand(newServeCmd(NewFactory()))
}
