package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	app := newApp()

	rootCmd := &cobra.Command{
		Use:           "zpools",
		Short:         "zpools.io CLI: manage ZFS pools and watch their jobs",
		Long:          "zpools talks to the zpools.io API to create, modify, scrub and delete ZFS pools, and follows the long-running jobs those actions start until they finish.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.wire(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			app.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.flags.rcFile, "rcfile", "", "Path to the zpoolrc file (default ~/.config/zpools.io/zpoolrc)")
	rootCmd.PersistentFlags().StringVar(&app.flags.apiURL, "api-url", "", "zpools.io API base URL (overrides ZPOOL_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newHelloCmd(app),
		newZpoolCmd(app),
		newJobCmd(app),
	)

	return rootCmd
}
