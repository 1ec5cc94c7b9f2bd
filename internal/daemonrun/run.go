// Package daemonrun hosts the fieldkit daemon runtime loop shared by the
// hidden `fieldkit daemon` command.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"fieldkit/internal/capture"
	"fieldkit/internal/compress"
	"fieldkit/internal/config"
	"fieldkit/internal/connectivity"
	"fieldkit/internal/daemon"
	"fieldkit/internal/deps"
	"fieldkit/internal/ipc"
	"fieldkit/internal/logging"
	"fieldkit/internal/notifications"
	"fieldkit/internal/remote"
	"fieldkit/internal/store"
	"fieldkit/internal/syncer"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel   string
	SocketPath string
}

// Run starts the fieldkit daemon runtime loop and blocks until a termination
// signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("fieldkit-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update fieldkit.log link: %v\n", err)
	}
	pidPath := filepath.Join(cfg.Paths.LogDir, "fieldkit.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open record store", logging.Error(err))
		return err
	}
	defer st.Close()

	if err := st.Preflight(signalCtx); err != nil {
		logger.Warn("storage preflight failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "free disk space before recording new evidence"),
			logging.String(logging.FieldImpact, "new submissions may be rejected"),
		)
	}

	notifier := notifications.NewService(cfg)

	var monitor *connectivity.Monitor
	if strings.TrimSpace(cfg.Remote.BaseURL) != "" {
		monitor = connectivity.NewMonitor(cfg, logger)
	}

	var coordinator *syncer.Coordinator
	client, clientErr := remote.New(cfg)
	if clientErr != nil {
		logger.Warn("remote API unavailable, records will accumulate locally",
			logging.Error(clientErr),
			logging.String(logging.FieldErrorHint, "set remote.base_url in the configuration"),
			logging.String(logging.FieldImpact, "sync passes cannot deliver records"),
		)
		coordinator = syncer.New(cfg, st, nil, monitor, notifier, logger)
	} else {
		coordinator = syncer.New(cfg, st, client, monitor, notifier, logger)
	}

	recorder := capture.NewFFmpegRecorder(cfg)
	controller := capture.NewController(recorder, cfg.Capture.MaxDurationSeconds, logger)
	compressor := compress.New(cfg, logger)

	d, err := daemon.New(cfg, st, coordinator, monitor, controller, compressor, notifier, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = filepath.Join(cfg.Paths.LogDir, "fieldkit.sock")
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and store database access"),
			logging.String(logging.FieldImpact, "daemon may not process records"),
		)
	}

	<-signalCtx.Done()
	logger.Info("fieldkit daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "fieldkit.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []slog.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("remote_configured", strings.TrimSpace(cfg.Remote.BaseURL) != ""),
		logging.Bool("notifications_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("video_device", cfg.Capture.VideoDevice),
		logging.String("audio_device", cfg.Capture.AudioDevice),
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "dependency snapshot", attrs...)
}
