package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/tale-cli/internal/domain"
)

func newShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Select an adventure and print its conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.service.Sessions(cmd.Context()); err != nil {
				return err
			}

			adventure, err := app.service.SelectAdventure(cmd.Context(), domain.SessionID(args[0]))
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n\n", adventure.Title, adventure.SessionID)
			for _, message := range adventure.Messages {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n\n", message.Role, message.Content)
			}

			return nil
		},
	}
}
