package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"fieldkit/internal/capture"
	"fieldkit/internal/compress"
	"fieldkit/internal/config"
	"fieldkit/internal/connectivity"
	"fieldkit/internal/fileutil"
	"fieldkit/internal/logging"
	"fieldkit/internal/notifications"
	"fieldkit/internal/services"
	"fieldkit/internal/store"
	"fieldkit/internal/syncer"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *store.Store
	compressor  *compress.Compressor
	controller  *capture.Controller
	monitor     *connectivity.Monitor
	coordinator *syncer.Coordinator
	notifier    notifications.Service
	devices     *deviceMonitor
	logPath     string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	captureMu      sync.Mutex
	captureTarget  string
	captureStarted time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Online       bool
	PID          int
	LockFilePath string
	StoreDBPath  string
	Health       store.HealthSummary
	Sync         syncer.Summary
	Capture      capture.Session
	Devices      bool
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, coordinator *syncer.Coordinator, monitor *connectivity.Monitor, controller *capture.Controller, compressor *compress.Compressor, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || coordinator == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, coordinator, and logger")
	}
	if notifier == nil {
		notifier = notifications.NewNoop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "fieldkitd.lock")
	d := &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		store:       st,
		compressor:  compressor,
		controller:  controller,
		monitor:     monitor,
		coordinator: coordinator,
		notifier:    notifier,
		logPath:     filepath.Join(cfg.Paths.LogDir, "fieldkit.log"),
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}
	d.devices = newDeviceMonitor(cfg, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the background services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fieldkit daemon instance is already running")
	}

	// Records stuck in syncing from an unclean shutdown go back to pending
	// before anything else runs.
	if reset, err := d.store.ResetStuckSyncing(ctx); err != nil {
		d.logger.Warn("failed to reset stuck records", logging.Error(err))
	} else if reset > 0 {
		d.logger.Info("recovered interrupted sync records", logging.Int("count", reset))
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.monitor != nil {
		d.monitor.Start(d.ctx)
	}
	d.coordinator.Start(d.ctx)
	if d.devices != nil {
		if err := d.devices.Start(d.ctx); err != nil {
			d.logger.Warn("device monitor unavailable", logging.Error(err))
		}
	}

	d.running.Store(true)
	d.logger.Info("fieldkit daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.controller != nil {
		d.controller.Reset()
	}
	if d.devices != nil {
		d.devices.Stop()
	}
	d.coordinator.Stop()
	if d.monitor != nil {
		d.monitor.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("fieldkit daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		StoreDBPath:  d.store.Path(),
		Sync:         d.coordinator.Summary(ctx),
	}
	if d.monitor != nil {
		status.Online = d.monitor.Online()
	}
	if d.controller != nil {
		status.Capture = d.controller.Snapshot()
	}
	if d.devices != nil {
		status.Devices = d.devices.Running()
	}
	if health, err := d.store.Health(ctx); err == nil {
		status.Health = health
	}
	return status
}

// SubmitComplaint validates and persists a new complaint. The complaint is
// immediately durable and queued for sync.
func (d *Daemon) SubmitComplaint(ctx context.Context, complaint *store.Complaint) error {
	if err := d.store.SaveComplaint(ctx, complaint); err != nil {
		if errors.Is(err, services.ErrStorage) {
			_ = d.notifier.NotifyStorageError(ctx, err)
		}
		return err
	}
	d.logger.Info("complaint recorded",
		logging.String(logging.FieldRecordID, complaint.LocalID))
	d.coordinator.TriggerSync()
	return nil
}

// AttachMedia compresses a source file, moves the result into the media
// directory, and persists it under the given complaint.
func (d *Daemon) AttachMedia(ctx context.Context, complaintLocalID, sourcePath string) (*store.Media, error) {
	if d.compressor == nil {
		return nil, errors.New("compressor unavailable")
	}
	absPath, err := filepath.Abs(strings.TrimSpace(sourcePath))
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}

	result, err := d.compressor.Compress(ctx, absPath)
	if err != nil {
		return nil, err
	}

	finalPath, err := d.placeMedia(result.Path, result.FileName)
	if err != nil {
		return nil, err
	}

	media := &store.Media{
		ComplaintLocalID: complaintLocalID,
		FileName:         filepath.Base(finalPath),
		MIMEType:         result.MIMEType,
		Kind:             string(result.Kind),
		SizeBytes:        result.SizeBytes,
		Path:             finalPath,
	}
	if err := d.store.SaveMedia(ctx, media); err != nil {
		if result.Compressed {
			_ = os.Remove(finalPath)
		}
		if errors.Is(err, services.ErrStorage) {
			_ = d.notifier.NotifyStorageError(ctx, err)
		}
		return nil, err
	}

	d.logger.Info("media attached",
		logging.String(logging.FieldRecordID, media.LocalID),
		logging.String("complaint", complaintLocalID),
		logging.String("file", media.FileName),
		logging.Bool("compressed", result.Compressed))
	d.coordinator.TriggerSync()
	return media, nil
}

// placeMedia moves a staged or source file into the durable media directory.
// Compressed staging output is moved; an untouched original is copied so the
// user's source file survives.
func (d *Daemon) placeMedia(path, fileName string) (string, error) {
	mediaDir := d.cfg.MediaDir()
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	finalPath := filepath.Join(mediaDir, fileName)
	if samePath, err := filepath.Abs(finalPath); err == nil {
		if srcAbs, err := filepath.Abs(path); err == nil && srcAbs == samePath {
			return finalPath, nil
		}
	}

	inStaging := strings.HasPrefix(path, d.cfg.Paths.StagingDir)
	if inStaging {
		if err := os.Rename(path, finalPath); err == nil {
			return finalPath, nil
		}
	}

	if err := fileutil.CopyFileVerified(path, finalPath); err != nil {
		return "", fmt.Errorf("copy media file: %w", err)
	}
	if inStaging {
		_ = os.Remove(path)
	}
	return finalPath, nil
}

// StartCapture begins a recording that will be attached to the given
// complaint when it finishes.
func (d *Daemon) StartCapture(ctx context.Context, complaintLocalID string, opts capture.Options) error {
	if d.controller == nil {
		return errors.New("capture unavailable")
	}
	complaint, err := d.store.GetComplaint(ctx, complaintLocalID)
	if err != nil {
		return err
	}
	if complaint == nil {
		return fmt.Errorf("complaint %s not found", complaintLocalID)
	}

	if err := d.controller.Start(ctx, opts); err != nil {
		return err
	}
	d.captureMu.Lock()
	d.captureTarget = complaintLocalID
	d.captureStarted = time.Now().UTC()
	d.captureMu.Unlock()
	return nil
}

// PauseCapture suspends the active recording.
func (d *Daemon) PauseCapture() error {
	if d.controller == nil {
		return errors.New("capture unavailable")
	}
	return d.controller.Pause()
}

// ResumeCapture continues a paused recording.
func (d *Daemon) ResumeCapture() error {
	if d.controller == nil {
		return errors.New("capture unavailable")
	}
	return d.controller.Resume()
}

// StopCapture finalizes the active recording, compresses it, and attaches it
// to the complaint named at start.
func (d *Daemon) StopCapture(ctx context.Context) (*store.Media, int, error) {
	if d.controller == nil {
		return nil, 0, errors.New("capture unavailable")
	}

	session := d.controller.Snapshot()
	elapsed := session.ElapsedSeconds

	outputPath, err := d.controller.Stop()
	if err != nil {
		return nil, 0, err
	}

	d.captureMu.Lock()
	target := d.captureTarget
	d.captureTarget = ""
	d.captureMu.Unlock()

	media, err := d.AttachMedia(ctx, target, outputPath)
	if err != nil {
		return nil, elapsed, err
	}
	_ = d.notifier.NotifyCaptureCompleted(ctx, media.FileName, elapsed)
	return media, elapsed, nil
}

// ResetCapture discards any active recording.
func (d *Daemon) ResetCapture() {
	if d.controller == nil {
		return
	}
	d.controller.Reset()
	d.captureMu.Lock()
	d.captureTarget = ""
	d.captureMu.Unlock()
}

// TriggerSync requests an immediate sync pass.
func (d *Daemon) TriggerSync() {
	d.coordinator.TriggerSync()
}

// ListComplaints returns stored complaints newest first.
func (d *Daemon) ListComplaints(ctx context.Context, statuses []store.SyncStatus) ([]*store.Complaint, error) {
	return d.store.ListComplaints(ctx, statuses...)
}

// ListMedia returns media for a complaint, or all media when the id is empty.
func (d *Daemon) ListMedia(ctx context.Context, complaintLocalID string) ([]*store.Media, error) {
	return d.store.ListMedia(ctx, complaintLocalID)
}

// ListQueue returns sync queue entries filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []store.EntryStatus) ([]*store.QueueEntry, error) {
	return d.store.ListEntries(ctx, statuses...)
}

// RetryErrored resets errored records for another sync attempt.
func (d *Daemon) RetryErrored(ctx context.Context) (int, error) {
	reset, err := d.store.RetryErrored(ctx)
	if err == nil && reset > 0 {
		d.coordinator.TriggerSync()
	}
	return reset, err
}

// PurgeSynced removes fully delivered records and their local files.
func (d *Daemon) PurgeSynced(ctx context.Context) (int, error) {
	return d.store.PurgeSynced(ctx)
}

// ResetStuck returns interrupted records and entries to pending.
func (d *Daemon) ResetStuck(ctx context.Context) (int, error) {
	return d.store.ResetStuckSyncing(ctx)
}

// StoreHealth returns aggregate record diagnostics.
func (d *Daemon) StoreHealth(ctx context.Context) (store.HealthSummary, error) {
	return d.store.Health(ctx)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
