package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	sessionsrender "github.com/bnema/tale-cli/internal/adapters/render/sessions"
)

func newWatchCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll until every adventure's media generation finishes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.service.Sessions(cmd.Context()); err != nil {
				return err
			}

			// RunSweeper keeps re-polling sessions whose first poll gave
			// up, so watch only returns once everything settled or the
			// user interrupts.
			if err := runWatchSpinner(cmd.Context(), cmd.ErrOrStderr(), "Generating images...", app.coordinator.RunSweeper); err != nil {
				return err
			}

			output, err := app.renderer(app.service.Adventures(), sessionsrender.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render adventures: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
			return err
		},
	}
}
