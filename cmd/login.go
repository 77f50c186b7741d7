package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *app) *cobra.Command {
	var tokenValue string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the bearer token for the story backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.tokenFile.Store(cmd.Context(), tokenValue); err != nil {
				return fmt.Errorf("store token: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Token stored.")
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenValue, "token", "", "Bearer token issued by the backend")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}
