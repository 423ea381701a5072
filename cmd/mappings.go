package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newMappingsCmd(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Validate and list the configured credential mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			store, err := cfg.ResolveMappings()
			if err != nil {
				return fmt.Errorf("loading mappings: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Organization/Workspace", "Service Account"})
			for _, entry := range store.Entries() {
				t.AppendRow(table.Row{entry[0], entry[1]})
			}
			t.Render()

			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), color.GreenString("✓ %d mapping(s) valid", store.Len()))
			return nil
		},
	}

	f.bindConfigFlag(cmd.Flags())

	return cmd
}

func init() {
	rootCmd.AddCommand(newMappingsCmd(NewFactory()))
}
