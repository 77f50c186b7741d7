package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/tale-cli/internal/domain"
)

func newNewCmd(app *app) *cobra.Command {
	var genre string
	var character string
	var world string
	var actions string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new adventure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			adventure, err := app.service.StartAdventure(cmd.Context(), domain.StoryPreferences{
				Genre:          genre,
				Character:      character,
				WorldAdditions: world,
				Actions:        actions,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Started %q (%s)\n\n", adventure.Title, adventure.SessionID)
			if len(adventure.Messages) > 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), adventure.Messages[0].Content)
			}

			// Image generation continues in the background; block here so
			// the process does not exit mid-poll.
			app.coordinator.Wait()

			return printMediaSummary(cmd, app, adventure.SessionID)
		},
	}

	cmd.Flags().StringVar(&genre, "genre", "", "Story genre (fantasy, sci-fi, mystery, ...)")
	cmd.Flags().StringVar(&character, "character", "", "Who the player wants to be")
	cmd.Flags().StringVar(&world, "world", "", "Extra world-building details")
	cmd.Flags().StringVar(&actions, "actions", "", "Preferred action style")
	_ = cmd.MarkFlagRequired("genre")

	return cmd
}

func printMediaSummary(cmd *cobra.Command, app *app, id domain.SessionID) error {
	adventure, ok := app.service.Adventure(id)
	if !ok {
		return nil
	}

	status := adventure.Media.Status
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nworld image: %s  character image: %s\n", status.World, status.Character)
	if adventure.Media.URLs.World != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "world url: %s\n", adventure.Media.URLs.World)
	}
	if adventure.Media.URLs.Character != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "character url: %s\n", adventure.Media.URLs.Character)
	}

	return nil
}
