package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	sessionsrender "github.com/bnema/tale-cli/internal/adapters/render/sessions"
)

func newListCmd(app *app) *cobra.Command {
	var asJSON bool
	var noSync bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List adventures and their media state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			adventures := app.service.Adventures()
			if !noSync {
				var err error
				adventures, err = app.service.Sessions(cmd.Context())
				if err != nil {
					return err
				}
			}

			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(adventures)
			}

			output, err := app.renderer(adventures, sessionsrender.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render adventures: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Skip the backend round-trip and show the local view")

	return cmd
}
