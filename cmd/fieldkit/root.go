package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var socketFlag string
	var configFlag string

	ctx := newCommandContext(&socketFlag, &configFlag)

	rootCmd := &cobra.Command{
		Use:   "fieldkit",
		Short: "Offline-first evidence collection for field investigators",
		Long: "fieldkit records complaints and media on the local machine and\n" +
			"synchronizes them to the case management service when a connection\n" +
			"is available. Most commands talk to the background daemon; start it\n" +
			"with `fieldkit start`.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Path to the fieldkit daemon socket")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	subcommands := newDaemonCommands(ctx)
	subcommands = append(subcommands,
		newDaemonRunCommand(ctx),
		newReportCommand(ctx),
		newMediaCommand(ctx),
		newCaptureCommand(ctx),
		newSyncCommand(ctx),
		newQueueCommand(ctx),
		newShowCommand(ctx),
		newTestNotifyCommand(ctx),
		newConfigCommand(),
	)
	for _, sub := range subcommands {
		rootCmd.AddCommand(sub)
	}

	return rootCmd
}
