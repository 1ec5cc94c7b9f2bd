package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldkit/internal/ipc"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				return tailDaemonLog(cmd, client, lines, follow)
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}

// tailDaemonLog prints the last `lines` entries of the daemon log and, when
// follow is set, keeps requesting from the returned offset until the command
// context is cancelled. An offset of -1 asks the daemon for the file tail;
// the limit only applies to that first fetch.
func tailDaemonLog(cmd *cobra.Command, client *ipc.Client, lines int, follow bool) error {
	req := ipc.LogTailRequest{Follow: follow, WaitMillis: 1000}
	if lines > 0 {
		req.Offset = -1
		req.Limit = lines
	}

	stdout := cmd.OutOrStdout()
	printed := false
	for {
		resp, err := client.LogTail(req)
		if err != nil {
			return fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(stdout, line)
			printed = true
		}
		if !follow {
			if !printed {
				fmt.Fprintln(stdout, "No log entries available")
			}
			return nil
		}
		if err := cmd.Context().Err(); err != nil {
			return nil
		}
		req.Offset = resp.Offset
		req.Limit = 0
	}
}
