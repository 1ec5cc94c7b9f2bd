package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fieldkit/internal/ipc"
	"fieldkit/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the sync queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueuePurgeCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sync queue entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(client *ipc.Client, st *store.Store) error {
				var entries []ipc.QueueEntry
				if client != nil {
					resp, err := client.QueueList(listStatuses)
					if err != nil {
						return err
					}
					entries = resp.Entries
				} else {
					statuses := make([]store.EntryStatus, 0, len(listStatuses))
					for _, raw := range listStatuses {
						if parsed, ok := store.ParseEntryStatus(raw); ok {
							statuses = append(statuses, parsed)
						}
					}
					records, err := st.ListEntries(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					for _, record := range records {
						entries = append(entries, queueEntryDTO(record))
					}
				}

				if asJSON {
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Sync queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Kind", "Record", "Status", "Attempts", "Next Attempt", "Last Error"},
					buildQueueRows(entries),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by entry status (pending, processing, completed, failed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Reschedule errored records for immediate sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueRetry()
				if err != nil {
					return err
				}
				if resp.Updated == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No errored records to retry")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rescheduled %d record(s) for sync\n", resp.Updated)
				return nil
			})
		},
	}
}

func newQueuePurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove completed queue entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueuePurge()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed entr%s\n", resp.Removed, pluralY(resp.Removed))
				return nil
			})
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return stuck in-flight entries to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueReset()
				if err != nil {
					return err
				}
				if resp.Updated == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No stuck entries found")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d entr%s to pending\n", resp.Updated, pluralY(resp.Updated))
				return nil
			})
		},
	}
}

func queueEntryDTO(entry *store.QueueEntry) ipc.QueueEntry {
	dto := ipc.QueueEntry{
		ID:            entry.ID,
		RecordKind:    string(entry.RecordKind),
		RecordLocalID: entry.RecordLocalID,
		Status:        string(entry.Status),
		Attempts:      entry.Attempts,
		LastError:     entry.LastError,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.NextAttemptAt != nil {
		dto.NextAttemptAt = entry.NextAttemptAt.Format(time.RFC3339)
	}
	return dto
}

func buildQueueRows(entries []ipc.QueueEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			strconv.FormatInt(entry.ID, 10),
			titleCase(entry.RecordKind),
			entry.RecordLocalID,
			titleCase(entry.Status),
			strconv.Itoa(entry.Attempts),
			formatTimestamp(entry.NextAttemptAt),
			truncate(entry.LastError, 40),
		})
	}
	return rows
}

func pluralY(count int) string {
	if count == 1 {
		return "y"
	}
	return "ies"
}
