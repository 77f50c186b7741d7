package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/tale-cli/internal/domain"
)

func newSendCmd(app *app) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "send <action...>",
		Short: "Send your next action and print the story's reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.service.Sessions(cmd.Context()); err != nil {
				return err
			}

			reply, err := app.service.SendAction(cmd.Context(), domain.SessionID(sessionID), strings.Join(args, " "))
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID of the adventure")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}
