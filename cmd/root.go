package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tale",
		Short:         "tale: interactive story sessions from the terminal",
		Long:          "tale keeps a local view of your story adventures in sync with the remote backend: it exchanges story beats, tracks asynchronous image generation per session, and caches resolved media URLs.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newNewCmd(app),
		newListCmd(app),
		newShowCmd(app),
		newSendCmd(app),
		newDeleteCmd(app),
		newRegenerateCmd(app),
		newRefreshCmd(app),
		newWatchCmd(app),
	)

	return rootCmd
}
