package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldkit/internal/ipc"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Trigger and inspect server synchronization",
	}

	syncCmd.AddCommand(&cobra.Command{
		Use:   "now",
		Short: "Request an immediate sync pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SyncTrigger(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Sync pass requested")
				return nil
			})
		},
	})

	syncCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the most recent sync pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				connectivity := "Offline (records queue locally)"
				connectivityKind := statusWarn
				if status.Online {
					connectivity = "Online"
					connectivityKind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine("Connectivity", connectivityKind, connectivity, colorize))

				if status.Sync.InFlight {
					fmt.Fprintln(stdout, renderStatusLine("Sync Pass", statusInfo, "In progress", colorize))
				}
				if status.Sync.LastPassAt == "" {
					fmt.Fprintln(stdout, renderStatusLine("Last Pass", statusInfo, "Never", colorize))
					return nil
				}
				fmt.Fprintln(stdout, renderStatusLine("Last Pass", statusInfo, formatTimestamp(status.Sync.LastPassAt), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Delivered", statusOK, fmt.Sprintf("%d", status.Sync.Synced), colorize))
				failedKind := statusInfo
				if status.Sync.Failed > 0 {
					failedKind = statusError
				}
				fmt.Fprintln(stdout, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", status.Sync.Failed), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Outstanding", statusInfo, fmt.Sprintf("%d", status.Sync.Pending), colorize))
				return nil
			})
		},
	})

	return syncCmd
}
