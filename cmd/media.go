package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/tale-cli/internal/domain"
)

func newRegenerateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <session-id>",
		Short: "Request a fresh image pass for an adventure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.service.Sessions(cmd.Context()); err != nil {
				return err
			}

			id := domain.SessionID(args[0])
			if err := app.service.RegenerateMedia(cmd.Context(), id); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Regeneration requested; waiting for images...")
			app.coordinator.Wait()

			return printMediaSummary(cmd, app, id)
		},
	}
}

func newRefreshCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <session-id>",
		Short: "Drop cached media URLs and repoll the adventure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.service.Sessions(cmd.Context()); err != nil {
				return err
			}

			id := domain.SessionID(args[0])
			if err := app.service.ForceRefresh(cmd.Context(), id); err != nil {
				return err
			}

			app.coordinator.Wait()

			return printMediaSummary(cmd, app, id)
		},
	}
}
