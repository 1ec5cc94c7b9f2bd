package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fieldkit/internal/ipc"
	"fieldkit/internal/store"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Record and inspect complaints",
	}

	reportCmd.AddCommand(newReportSubmitCommand(ctx))
	reportCmd.AddCommand(newReportListCommand(ctx))
	reportCmd.AddCommand(newReportShowCommand(ctx))

	return reportCmd
}

func newReportSubmitCommand(ctx *commandContext) *cobra.Command {
	var req ipc.ReportSubmitRequest
	var latitude float64
	var longitude float64

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record a new complaint (durable before any network activity)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(req.Description) == "" {
				return errors.New("a description is required (--description)")
			}
			if cmd.Flags().Changed("lat") {
				req.Latitude = &latitude
			}
			if cmd.Flags().Changed("lon") {
				req.Longitude = &longitude
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ReportSubmit(req)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Complaint recorded: %s\n", resp.Complaint.LocalID)
				fmt.Fprintln(stdout, "It will sync automatically when the server is reachable.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Investigator, "investigator", "", "Investigator identifier")
	cmd.Flags().StringVar(&req.Beneficiary, "beneficiary", "", "Beneficiary identifier")
	cmd.Flags().StringVar(&req.IncidentType, "type", "", "Incident type")
	cmd.Flags().StringVar(&req.IncidentDate, "date", "", "Incident date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Location, "location", "", "Incident location")
	cmd.Flags().StringVar(&req.Description, "description", "", "Incident description (required)")
	cmd.Flags().Float64Var(&latitude, "lat", 0, "Latitude of the incident")
	cmd.Flags().Float64Var(&longitude, "lon", 0, "Longitude of the incident")
	cmd.Flags().StringSliceVar(&req.Services, "service", nil, "Requested support service (repeatable)")
	cmd.Flags().StringVar(&req.Comment, "comment", "", "Free-form comment")
	return cmd
}

func newReportListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored complaints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(client *ipc.Client, st *store.Store) error {
				var complaints []ipc.Complaint
				if client != nil {
					resp, err := client.ReportList(listStatuses)
					if err != nil {
						return err
					}
					complaints = resp.Complaints
				} else {
					statuses := make([]store.SyncStatus, 0, len(listStatuses))
					for _, raw := range listStatuses {
						if parsed, ok := store.ParseSyncStatus(raw); ok {
							statuses = append(statuses, parsed)
						}
					}
					records, err := st.ListComplaints(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					for _, record := range records {
						complaints = append(complaints, complaintDTO(record))
					}
				}

				if asJSON {
					return writeJSON(cmd, complaints)
				}
				if len(complaints) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No complaints stored")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Type", "Status", "Created", "Description"},
					buildComplaintRows(complaints),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by sync status (pending, syncing, synced, error)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newReportShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <complaint-id>",
		Short: "Show one complaint with its attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			localID := strings.TrimSpace(args[0])
			return ctx.withClient(func(client *ipc.Client) error {
				listResp, err := client.ReportList(nil)
				if err != nil {
					return err
				}
				var found *ipc.Complaint
				for i := range listResp.Complaints {
					if listResp.Complaints[i].LocalID == localID {
						found = &listResp.Complaints[i]
						break
					}
				}
				if found == nil {
					return fmt.Errorf("complaint %s not found", localID)
				}

				mediaResp, err := client.MediaList(localID)
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				for _, line := range renderSectionHeader("Complaint "+found.LocalID, colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Status", statusKindForSync(found.SyncStatus), titleCase(found.SyncStatus), colorize))
				if found.ServerID != "" {
					fmt.Fprintln(stdout, renderStatusLine("Server ID", statusInfo, found.ServerID, colorize))
				}
				if found.ErrorMessage != "" {
					fmt.Fprintln(stdout, renderStatusLine("Last Error", statusError, found.ErrorMessage, colorize))
				}
				fmt.Fprintln(stdout, renderStatusLine("Type", statusInfo, found.IncidentType, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Date", statusInfo, found.IncidentDate, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Location", statusInfo, found.Location, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Created", statusInfo, formatTimestamp(found.CreatedAt), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Description", statusInfo, found.Description, colorize))

				fmt.Fprintln(stdout)
				if len(mediaResp.Media) == 0 {
					fmt.Fprintln(stdout, "No media attached")
					return nil
				}
				table := renderTable(
					[]string{"ID", "File", "Kind", "Size", "Status"},
					buildMediaRows(mediaResp.Media),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
}

func statusKindForSync(status string) statusKind {
	switch status {
	case "synced":
		return statusOK
	case "error":
		return statusError
	case "syncing":
		return statusWarn
	default:
		return statusInfo
	}
}

func complaintDTO(record *store.Complaint) ipc.Complaint {
	return ipc.Complaint{
		LocalID:      record.LocalID,
		Investigator: record.Investigator,
		Beneficiary:  record.Beneficiary,
		IncidentType: record.IncidentType,
		IncidentDate: record.IncidentDate,
		Location:     record.Location,
		Description:  record.Description,
		Latitude:     record.Latitude,
		Longitude:    record.Longitude,
		Services:     record.ServicesJSON,
		Comment:      record.Comment,
		SyncStatus:   string(record.SyncStatus),
		ServerID:     record.ServerID,
		ErrorMessage: record.ErrorMessage,
		CreatedAt:    record.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    record.UpdatedAt.Format(time.RFC3339),
	}
}

func buildComplaintRows(complaints []ipc.Complaint) [][]string {
	rows := make([][]string, 0, len(complaints))
	for _, complaint := range complaints {
		rows = append(rows, []string{
			complaint.LocalID,
			complaint.IncidentType,
			titleCase(complaint.SyncStatus),
			formatTimestamp(complaint.CreatedAt),
			truncate(complaint.Description, 48),
		})
	}
	return rows
}
