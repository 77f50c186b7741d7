package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/tale-cli/internal/domain"
)

func newDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete an adventure (no undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.service.Sessions(cmd.Context()); err != nil {
				return err
			}

			if err := app.service.DeleteAdventure(cmd.Context(), domain.SessionID(args[0])); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Adventure deleted.")
			return nil
		},
	}
}
