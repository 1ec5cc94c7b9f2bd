package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fieldkit/internal/ipc"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Control audio/video recording for a complaint",
	}

	captureCmd.AddCommand(newCaptureStartCommand(ctx))
	captureCmd.AddCommand(newCapturePauseCommand(ctx))
	captureCmd.AddCommand(newCaptureResumeCommand(ctx))
	captureCmd.AddCommand(newCaptureStopCommand(ctx))
	captureCmd.AddCommand(newCaptureResetCommand(ctx))
	captureCmd.AddCommand(newCaptureStatusCommand(ctx))

	return captureCmd
}

func newCaptureStartCommand(ctx *commandContext) *cobra.Command {
	var req ipc.CaptureStartRequest

	cmd := &cobra.Command{
		Use:   "start <complaint-id>",
		Short: "Start recording evidence for a complaint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ComplaintLocalID = strings.TrimSpace(args[0])
			if req.AudioOnly && req.VideoOnly {
				return fmt.Errorf("--audio-only and --video-only are mutually exclusive")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.CaptureStart(req); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recording started for complaint %s\n", req.ComplaintLocalID)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&req.MaxDurationSeconds, "max-duration", 0, "Stop automatically after this many seconds (0 uses the configured default)")
	cmd.Flags().BoolVar(&req.AudioOnly, "audio-only", false, "Record audio without video")
	cmd.Flags().BoolVar(&req.VideoOnly, "video-only", false, "Record video without audio")
	return cmd
}

func newCapturePauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the active recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.CapturePause(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recording paused")
				return nil
			})
		},
	}
}

func newCaptureResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.CaptureResume(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recording resumed")
				return nil
			})
		},
	}
}

func newCaptureStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop recording and attach the result to its complaint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CaptureStop()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Recording stopped after %s\n", formatElapsed(resp.ElapsedSeconds))
				if resp.Media.LocalID != "" {
					fmt.Fprintf(stdout, "Attached %s (%s) to complaint %s\n",
						resp.Media.FileName, formatSize(resp.Media.SizeBytes), resp.Media.ComplaintLocalID)
				}
				return nil
			})
		},
	}
}

func newCaptureResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the current recording session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.CaptureReset(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recording session discarded")
				return nil
			})
		},
	}
}

func newCaptureStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current recording session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				capture := status.Capture
				switch {
				case capture.Recording && capture.Paused:
					fmt.Fprintln(stdout, renderStatusLine("Capture", statusWarn, "Paused", colorize))
				case capture.Recording:
					fmt.Fprintln(stdout, renderStatusLine("Capture", statusOK, "Recording", colorize))
				default:
					fmt.Fprintln(stdout, renderStatusLine("Capture", statusInfo, "Idle", colorize))
					return nil
				}
				fmt.Fprintln(stdout, renderStatusLine("Elapsed", statusInfo, formatElapsed(capture.ElapsedSeconds), colorize))
				if capture.MaxDurationSeconds > 0 {
					fmt.Fprintln(stdout, renderStatusLine("Limit", statusInfo, formatElapsed(capture.MaxDurationSeconds), colorize))
				}
				if capture.OutputPath != "" {
					fmt.Fprintln(stdout, renderStatusLine("Output", statusInfo, capture.OutputPath, colorize))
				}
				return nil
			})
		},
	}
}

func formatElapsed(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
}
