package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fieldkit/internal/ipc"
	"fieldkit/internal/store"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Attach and inspect evidence files",
	}

	mediaCmd.AddCommand(newMediaAttachCommand(ctx))
	mediaCmd.AddCommand(newMediaListCommand(ctx))

	return mediaCmd
}

func newMediaAttachCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <complaint-id> <file>",
		Short: "Compress a file and attach it to a complaint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			localID := strings.TrimSpace(args[0])
			sourcePath, err := filepath.Abs(strings.TrimSpace(args[1]))
			if err != nil {
				return fmt.Errorf("resolve source path: %w", err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MediaAttach(localID, sourcePath)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Attached %s (%s, %s) to complaint %s\n",
					resp.Media.FileName, resp.Media.Kind, formatSize(resp.Media.SizeBytes), localID)
				return nil
			})
		},
	}
}

func newMediaListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list [complaint-id]",
		Short: "List stored media, optionally for one complaint",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var localID string
			if len(args) == 1 {
				localID = strings.TrimSpace(args[0])
			}
			return ctx.withStore(cmd.Context(), func(client *ipc.Client, st *store.Store) error {
				var media []ipc.Media
				if client != nil {
					resp, err := client.MediaList(localID)
					if err != nil {
						return err
					}
					media = resp.Media
				} else {
					records, err := st.ListMedia(cmd.Context(), localID)
					if err != nil {
						return err
					}
					for _, record := range records {
						media = append(media, mediaDTO(record))
					}
				}

				if asJSON {
					return writeJSON(cmd, media)
				}
				if len(media) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No media stored")
					return nil
				}
				table := renderTable(
					[]string{"ID", "File", "Kind", "Size", "Status"},
					buildMediaRows(media),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func mediaDTO(record *store.Media) ipc.Media {
	return ipc.Media{
		LocalID:          record.LocalID,
		ComplaintLocalID: record.ComplaintLocalID,
		FileName:         record.FileName,
		MIMEType:         record.MIMEType,
		Kind:             record.Kind,
		SizeBytes:        record.SizeBytes,
		Path:             record.Path,
		SyncStatus:       string(record.SyncStatus),
		ErrorMessage:     record.ErrorMessage,
		CreatedAt:        record.CreatedAt.Format(time.RFC3339),
	}
}

func buildMediaRows(media []ipc.Media) [][]string {
	rows := make([][]string, 0, len(media))
	for _, item := range media {
		rows = append(rows, []string{
			item.LocalID,
			truncate(item.FileName, 32),
			item.Kind,
			formatSize(item.SizeBytes),
			titleCase(item.SyncStatus),
		})
	}
	return rows
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
