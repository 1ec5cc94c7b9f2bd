package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"fieldkit/internal/config"
	"fieldkit/internal/connectivity"
	"fieldkit/internal/logging"
	"fieldkit/internal/notifications"
	"fieldkit/internal/remote"
	"fieldkit/internal/services"
	"fieldkit/internal/store"
)

// apiClient is the slice of the remote client the coordinator needs.
type apiClient interface {
	SubmitComplaint(ctx context.Context, payload remote.ComplaintPayload) (string, error)
	RequestUpload(ctx context.Context, request remote.UploadRequest) (remote.UploadTarget, error)
	Upload(ctx context.Context, target remote.UploadTarget, path, contentType string) error
}

// Summary reports the outcome of the most recent sync pass.
type Summary struct {
	LastPassAt time.Time
	Synced     int
	Failed     int
	Pending    int
	InFlight   bool
}

// Coordinator drains the sync queue whenever connectivity allows.
type Coordinator struct {
	cfg      *config.Config
	store    *store.Store
	client   apiClient
	monitor  *connectivity.Monitor
	notifier notifications.Service
	logger   *slog.Logger

	trigger chan struct{}

	mu      sync.Mutex
	syncing bool
	summary Summary
	done    chan struct{}
	wg      sync.WaitGroup
}

// New builds a Coordinator. The client may be nil when no remote endpoint is
// configured; passes then report every record as failed-transient without
// touching record state.
func New(cfg *config.Config, st *store.Store, client apiClient, monitor *connectivity.Monitor, notifier notifications.Service, logger *slog.Logger) *Coordinator {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	return &Coordinator{
		cfg:      cfg,
		store:    st,
		client:   client,
		monitor:  monitor,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "syncer"),
		trigger:  make(chan struct{}, 1),
	}
}

// Start launches the background trigger loop.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return
	}
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	interval := time.Duration(c.cfg.Sync.PollInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var events <-chan connectivity.Event
		if c.monitor != nil {
			events = c.monitor.Events()
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				c.runPass(ctx)
			case event := <-events:
				if event.State == connectivity.StateOnline {
					c.logger.Info("back online, starting sync pass")
					c.runPass(ctx)
				}
			case <-c.trigger:
				c.runPass(ctx)
			}
		}
	}()
}

// Stop halts the trigger loop. An in-flight pass finishes its current record.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	done := c.done
	c.done = nil
	c.mu.Unlock()
	if done != nil {
		close(done)
		c.wg.Wait()
	}
}

// TriggerSync requests an immediate pass. The request coalesces with any
// already pending trigger.
func (c *Coordinator) TriggerSync() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Summary returns the outcome of the latest pass and the current pending
// count.
func (c *Coordinator) Summary(ctx context.Context) Summary {
	c.mu.Lock()
	summary := c.summary
	summary.InFlight = c.syncing
	c.mu.Unlock()

	if pending, err := c.store.OutstandingCount(ctx); err == nil {
		summary.Pending = pending
	}
	return summary
}

// RunPass drains the queue once. It returns immediately when a pass is
// already in flight; duplicate concurrent submission of the same record is
// impossible by construction.
func (c *Coordinator) RunPass(ctx context.Context) (Summary, error) {
	if !c.beginPass() {
		return c.Summary(ctx), services.Wrap(services.ErrInvalidState, "syncer", "run pass",
			"a sync pass is already in flight", nil)
	}
	defer c.endPass()
	return c.drain(ctx)
}

func (c *Coordinator) runPass(ctx context.Context) {
	if !c.beginPass() {
		return
	}
	defer c.endPass()
	if _, err := c.drain(ctx); err != nil {
		c.logger.Error("sync pass failed", logging.Error(err))
	}
}

func (c *Coordinator) beginPass() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.syncing {
		return false
	}
	c.syncing = true
	return true
}

func (c *Coordinator) endPass() {
	c.mu.Lock()
	c.syncing = false
	c.mu.Unlock()
}

func (c *Coordinator) drain(ctx context.Context) (Summary, error) {
	if c.client == nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "syncer", "drain queue",
			"no remote client configured", nil)
	}

	started := time.Now().UTC()
	synced := 0
	failed := 0

	for {
		if ctx.Err() != nil {
			break
		}
		entry, err := c.store.NextReady(ctx, time.Now())
		if err != nil {
			return Summary{}, err
		}
		if entry == nil {
			break
		}
		if err := c.store.MarkEntryProcessing(ctx, entry.ID); err != nil {
			return Summary{}, err
		}

		if err := c.syncRecord(ctx, entry); err != nil {
			failed++
			c.logger.Warn("record sync failed",
				logging.String(logging.FieldEntryID, fmt.Sprintf("%d", entry.ID)),
				logging.String(logging.FieldRecordID, entry.RecordLocalID),
				logging.Error(err))
			if failErr := c.store.FailEntry(ctx, entry.ID, err.Error()); failErr != nil {
				return Summary{}, failErr
			}
			continue
		}

		synced++
		if err := c.store.CompleteEntry(ctx, entry.ID); err != nil {
			return Summary{}, err
		}
	}

	summary := Summary{
		LastPassAt: started,
		Synced:     synced,
		Failed:     failed,
	}
	if pending, err := c.store.OutstandingCount(ctx); err == nil {
		summary.Pending = pending
	}

	c.mu.Lock()
	c.summary = summary
	c.mu.Unlock()

	if synced > 0 || failed > 0 {
		c.logger.Info("sync pass completed",
			logging.Int("synced", synced),
			logging.Int("failed", failed),
			logging.Int("pending", summary.Pending))
		_ = c.notifier.NotifySyncPassCompleted(ctx, synced, failed, summary.Pending)
	}
	return summary, nil
}

// syncRecord pushes one queue entry to the server. Record status moves to
// syncing first so an interrupted process is detectable on restart.
func (c *Coordinator) syncRecord(ctx context.Context, entry *store.QueueEntry) error {
	switch entry.RecordKind {
	case store.KindComplaint:
		return c.syncComplaint(ctx, entry.RecordLocalID)
	case store.KindMedia:
		return c.syncMedia(ctx, entry.RecordLocalID)
	}
	return services.Wrap(services.ErrValidation, "syncer", "sync record",
		fmt.Sprintf("unknown record kind %s", entry.RecordKind), nil)
}

func (c *Coordinator) syncComplaint(ctx context.Context, localID string) error {
	complaint, err := c.store.GetComplaint(ctx, localID)
	if err != nil {
		return err
	}
	if complaint == nil {
		return services.Wrap(services.ErrValidation, "syncer", "sync complaint",
			fmt.Sprintf("complaint %s not found", localID), nil)
	}
	if complaint.SyncStatus == store.SyncSynced {
		// Already acknowledged, probably an entry left over from a crash.
		return nil
	}

	if err := c.store.SetComplaintStatus(ctx, localID, store.SyncSyncing, "", ""); err != nil {
		return err
	}

	serverID, err := c.client.SubmitComplaint(ctx, complaintPayload(complaint))
	if err != nil {
		if statusErr := c.store.SetComplaintStatus(ctx, localID, store.SyncError, "", err.Error()); statusErr != nil {
			c.logger.Warn("failed to record sync error", logging.Error(statusErr))
		}
		_ = c.notifier.NotifySyncError(ctx, "complaint", localID, err)
		return err
	}
	return c.store.SetComplaintStatus(ctx, localID, store.SyncSynced, serverID, "")
}

func (c *Coordinator) syncMedia(ctx context.Context, localID string) error {
	media, err := c.store.GetMedia(ctx, localID)
	if err != nil {
		return err
	}
	if media == nil {
		return services.Wrap(services.ErrValidation, "syncer", "sync media",
			fmt.Sprintf("media %s not found", localID), nil)
	}
	if media.SyncStatus == store.SyncSynced {
		return nil
	}

	parent, err := c.store.GetComplaint(ctx, media.ComplaintLocalID)
	if err != nil {
		return err
	}

	if err := c.store.SetMediaStatus(ctx, localID, store.SyncSyncing, ""); err != nil {
		return err
	}

	request := remote.UploadRequest{
		FileName:         media.FileName,
		FileType:         media.MIMEType,
		ComplaintLocalID: media.ComplaintLocalID,
	}
	if parent != nil {
		request.ComplaintID = parent.ServerID
	}

	uploadErr := func() error {
		target, err := c.client.RequestUpload(ctx, request)
		if err != nil {
			return err
		}
		return c.client.Upload(ctx, target, media.Path, media.MIMEType)
	}()
	if uploadErr != nil {
		if statusErr := c.store.SetMediaStatus(ctx, localID, store.SyncError, uploadErr.Error()); statusErr != nil {
			c.logger.Warn("failed to record sync error", logging.Error(statusErr))
		}
		_ = c.notifier.NotifySyncError(ctx, "media", localID, uploadErr)
		return uploadErr
	}
	return c.store.SetMediaStatus(ctx, localID, store.SyncSynced, "")
}

func complaintPayload(complaint *store.Complaint) remote.ComplaintPayload {
	var serviceList []string
	if complaint.ServicesJSON != "" {
		// Malformed service lists are dropped rather than blocking the
		// submission of the complaint itself.
		_ = json.Unmarshal([]byte(complaint.ServicesJSON), &serviceList)
	}
	return remote.ComplaintPayload{
		LocalID:      complaint.LocalID,
		Investigator: complaint.Investigator,
		Beneficiary:  complaint.Beneficiary,
		IncidentType: complaint.IncidentType,
		IncidentDate: complaint.IncidentDate,
		Location:     complaint.Location,
		Description:  complaint.Description,
		Latitude:     complaint.Latitude,
		Longitude:    complaint.Longitude,
		Services:     serviceList,
		Comment:      complaint.Comment,
		CreatedAt:    complaint.CreatedAt.Format(time.RFC3339Nano),
	}
}
