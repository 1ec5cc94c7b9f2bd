package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fieldkit/internal/daemonctl"
	"fieldkit/internal/ipc"
	"fieldkit/internal/store"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the fieldkit daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			printStartState(stdout, result, "Daemon started", "Daemon already running")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the fieldkit daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the fieldkit daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			printStartState(stdout, result.Start, "Daemon restarted", "Daemon restarted")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, sync, and record status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusCommand(ctx, cmd)
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func runStatusCommand(ctx *commandContext, cmd *cobra.Command) error {
	cfg := ctx.configValue()
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	var status *ipc.StatusResponse
	if client, err := ctx.dialClient(); err == nil {
		resp, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil {
			status = resp
		}
	}

	for _, line := range renderSectionHeader("System Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if status != nil && status.Running {
		fmt.Fprintln(stdout, renderStatusLine("Fieldkit", statusOK, "Running", colorize))
		if status.Online {
			fmt.Fprintln(stdout, renderStatusLine("Connectivity", statusOK, "Online", colorize))
		} else {
			fmt.Fprintln(stdout, renderStatusLine("Connectivity", statusWarn, "Offline (records queue locally)", colorize))
		}
		if status.DeviceMonitor {
			fmt.Fprintln(stdout, renderStatusLine("Device Monitor", statusOK, "Watching capture devices", colorize))
		} else {
			fmt.Fprintln(stdout, renderStatusLine("Device Monitor", statusInfo, "Inactive", colorize))
		}
		if status.Capture.Recording {
			detail := fmt.Sprintf("Recording (%ds of %ds)", status.Capture.ElapsedSeconds, status.Capture.MaxDurationSeconds)
			if status.Capture.Paused {
				detail = fmt.Sprintf("Paused at %ds", status.Capture.ElapsedSeconds)
			}
			fmt.Fprintln(stdout, renderStatusLine("Capture", statusWarn, detail, colorize))
		} else {
			fmt.Fprintln(stdout, renderStatusLine("Capture", statusInfo, "Idle", colorize))
		}
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Fieldkit", statusWarn, "Not running (run `fieldkit start`)", colorize))
	}
	if cfg != nil {
		if strings.TrimSpace(cfg.Remote.BaseURL) != "" {
			fmt.Fprintln(stdout, renderStatusLine("Remote API", statusOK, cfg.Remote.BaseURL, colorize))
		} else {
			fmt.Fprintln(stdout, renderStatusLine("Remote API", statusWarn, "Not configured", colorize))
		}
		if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
			fmt.Fprintln(stdout, renderStatusLine("Notifications", statusOK, "Configured", colorize))
		} else {
			fmt.Fprintln(stdout, renderStatusLine("Notifications", statusInfo, "Not configured", colorize))
		}
	}
	fmt.Fprintln(stdout)

	health, err := resolveHealth(ctx, cmd, status)
	if err != nil {
		return err
	}

	for _, line := range renderSectionHeader("Record Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	rows := buildHealthRows(health)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "No records stored")
		return nil
	}
	table := renderTable([]string{"State", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
	fmt.Fprintln(stdout, table)

	if status != nil && status.Sync.LastPassAt != "" {
		fmt.Fprintln(stdout)
		for _, line := range renderSectionHeader("Last Sync Pass", colorize) {
			fmt.Fprintln(stdout, line)
		}
		fmt.Fprintln(stdout, renderStatusLine("Completed", statusInfo, status.Sync.LastPassAt, colorize))
		fmt.Fprintln(stdout, renderStatusLine("Delivered", statusOK, fmt.Sprintf("%d", status.Sync.Synced), colorize))
		failKind := statusOK
		if status.Sync.Failed > 0 {
			failKind = statusWarn
		}
		fmt.Fprintln(stdout, renderStatusLine("Failed", failKind, fmt.Sprintf("%d", status.Sync.Failed), colorize))
		fmt.Fprintln(stdout, renderStatusLine("Outstanding", statusInfo, fmt.Sprintf("%d", status.Sync.Pending), colorize))
	}
	return nil
}

// resolveHealth prefers the daemon's view but falls back to opening the store
// directly so status works while the daemon is down.
func resolveHealth(ctx *commandContext, cmd *cobra.Command, status *ipc.StatusResponse) (ipc.HealthCounts, error) {
	if status != nil && status.Running {
		return status.Health, nil
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return ipc.HealthCounts{}, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return ipc.HealthCounts{}, fmt.Errorf("open record store: %w", err)
	}
	defer st.Close()
	health, err := st.Health(cmd.Context())
	if err != nil {
		return ipc.HealthCounts{}, err
	}
	return ipc.HealthCounts{
		Complaints: health.Complaints,
		Media:      health.Media,
		Pending:    health.Pending,
		Syncing:    health.Syncing,
		Synced:     health.Synced,
		Errored:    health.Errored,
	}, nil
}

func buildHealthRows(health ipc.HealthCounts) [][]string {
	if health.Complaints == 0 && health.Media == 0 {
		return nil
	}
	return [][]string{
		{"Complaints", fmt.Sprintf("%d", health.Complaints)},
		{"Media", fmt.Sprintf("%d", health.Media)},
		{titleCase("pending"), fmt.Sprintf("%d", health.Pending)},
		{titleCase("syncing"), fmt.Sprintf("%d", health.Syncing)},
		{titleCase("synced"), fmt.Sprintf("%d", health.Synced)},
		{titleCase("error"), fmt.Sprintf("%d", health.Errored)},
	}
}

// printStartState reports a start outcome, favoring the daemon's own message
// when the request was only acknowledged.
func printStartState(w io.Writer, result daemonctl.StartResult, startedLabel, runningLabel string) {
	switch result.State {
	case daemonctl.StartStateStarted:
		fmt.Fprintln(w, startedLabel)
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintln(w, runningLabel)
	case daemonctl.StartStateRequested:
		if msg := strings.TrimSpace(result.Message); msg != "" {
			fmt.Fprintln(w, msg)
			return
		}
		fmt.Fprintln(w, "Start request sent")
	}
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
