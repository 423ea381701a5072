package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/larsfn/minterra/internal/service"
)

// tokenEnvVar avoids passing the caller token on the command line where it
// would end up in shell history and process listings.
const tokenEnvVar = "MINTERRA_TFC_TOKEN"

func newMintCmd(f *Factory) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Run the exchange pipeline locally and print the minted token",
		Long: `Mint runs the full validation pipeline in-process, without the HTTP
server: introspect the caller token, check the run state, resolve the
workspace mapping and mint a token. The caller token is read from the
` + tokenEnvVar + ` environment variable. The minted token is written to
stdout so it can be captured; everything else goes to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := os.Getenv(tokenEnvVar)
			if token == "" {
				return fmt.Errorf("%s is not set", tokenEnvVar)
			}

			cfg, err := f.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			svc, _, err := f.BuildService(cmd.Context(), cfg, nil)
			if err != nil {
				return fmt.Errorf("initializing broker: %w", err)
			}

			artifact, err := svc.Exchange(cmd.Context(), service.ExchangeRequest{
				RunID: runID,
				Token: token,
			})
			if err != nil {
				return err
			}

			log.Info().
				Str("service_account", artifact.ServiceAccount).
				Time("expires_at", artifact.ExpiresAt).
				Msg("token minted")

			if _, err := fmt.Fprintln(cmd.OutOrStdout(), artifact.Value); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), color.GreenString("✓ token expires at %s", artifact.ExpiresAt.Format("15:04:05")))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "The run to exchange credentials for")
	_ = cmd.MarkFlagRequired("run-id")
	f.bindConfigFlag(cmd.Flags())

	return cmd
}

func init() {
	rootCmd.AddCommand(newMintCmd(NewFactory()))
}
