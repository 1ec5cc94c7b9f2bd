package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"log/slog"

	"fieldkit/internal/capture"
	"fieldkit/internal/daemon"
	"fieldkit/internal/logging"
	"fieldkit/internal/logs"
	"fieldkit/internal/store"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	listener, err := bindSocket(path)
	if err != nil {
		return nil, err
	}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Fieldkit", &service{daemon: d, logger: logger, ctx: ctx}); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// bindSocket replaces any stale socket file left by a previous daemon before
// listening.
func bindSocket(path string) (net.Listener, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	return listener, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go s.acceptLoop()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("accept failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "ipc_accept_failed"),
				logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
				logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
			continue
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()

	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun fieldkit daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fromComplaint(complaint *store.Complaint) Complaint {
	return Complaint{
		LocalID:      complaint.LocalID,
		Investigator: complaint.Investigator,
		Beneficiary:  complaint.Beneficiary,
		IncidentType: complaint.IncidentType,
		IncidentDate: complaint.IncidentDate,
		Location:     complaint.Location,
		Description:  complaint.Description,
		Latitude:     complaint.Latitude,
		Longitude:    complaint.Longitude,
		Services:     complaint.ServicesJSON,
		Comment:      complaint.Comment,
		SyncStatus:   string(complaint.SyncStatus),
		ServerID:     complaint.ServerID,
		ErrorMessage: complaint.ErrorMessage,
		CreatedAt:    formatTime(complaint.CreatedAt),
		UpdatedAt:    formatTime(complaint.UpdatedAt),
	}
}

func fromMedia(media *store.Media) Media {
	return Media{
		LocalID:          media.LocalID,
		ComplaintLocalID: media.ComplaintLocalID,
		FileName:         media.FileName,
		MIMEType:         media.MIMEType,
		Kind:             media.Kind,
		SizeBytes:        media.SizeBytes,
		Path:             media.Path,
		SyncStatus:       string(media.SyncStatus),
		ErrorMessage:     media.ErrorMessage,
		CreatedAt:        formatTime(media.CreatedAt),
	}
}

func fromQueueEntry(entry *store.QueueEntry) QueueEntry {
	dto := QueueEntry{
		ID:            entry.ID,
		RecordKind:    string(entry.RecordKind),
		RecordLocalID: entry.RecordLocalID,
		Status:        string(entry.Status),
		Attempts:      entry.Attempts,
		LastError:     entry.LastError,
		CreatedAt:     formatTime(entry.CreatedAt),
	}
	if entry.NextAttemptAt != nil {
		dto.NextAttemptAt = formatTime(*entry.NextAttemptAt)
	}
	return dto
}

func fromHealth(health store.HealthSummary) HealthCounts {
	return HealthCounts{
		Complaints: health.Complaints,
		Media:      health.Media,
		Pending:    health.Pending,
		Syncing:    health.Syncing,
		Synced:     health.Synced,
		Errored:    health.Errored,
	}
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	err := s.daemon.Start(s.ctx)
	if err != nil {
		*resp = StartResponse{Started: false, Message: err.Error()}
		return nil
	}
	*resp = StartResponse{Started: true, Message: "daemon started"}
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.Online = status.Online
	resp.PID = status.PID
	resp.LockPath = status.LockFilePath
	resp.StoreDBPath = status.StoreDBPath
	resp.Health = fromHealth(status.Health)
	resp.Sync = SyncSummary{
		LastPassAt: formatTime(status.Sync.LastPassAt),
		Synced:     status.Sync.Synced,
		Failed:     status.Sync.Failed,
		Pending:    status.Sync.Pending,
		InFlight:   status.Sync.InFlight,
	}
	resp.Capture = CaptureStatus{
		Recording:          status.Capture.Recording,
		Paused:             status.Capture.Paused,
		ElapsedSeconds:     status.Capture.ElapsedSeconds,
		MaxDurationSeconds: status.Capture.MaxDurationSeconds,
		OutputPath:         status.Capture.OutputPath,
	}
	resp.DeviceMonitor = status.Devices
	return nil
}

func (s *service) ReportSubmit(req ReportSubmitRequest, resp *ReportSubmitResponse) error {
	servicesJSON := ""
	if len(req.Services) > 0 {
		encoded, err := json.Marshal(req.Services)
		if err != nil {
			return fmt.Errorf("encode services: %w", err)
		}
		servicesJSON = string(encoded)
	}

	complaint := &store.Complaint{
		Investigator: req.Investigator,
		Beneficiary:  req.Beneficiary,
		IncidentType: req.IncidentType,
		IncidentDate: req.IncidentDate,
		Location:     req.Location,
		Description:  req.Description,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ServicesJSON: servicesJSON,
		Comment:      req.Comment,
	}
	if err := s.daemon.SubmitComplaint(s.ctx, complaint); err != nil {
		return err
	}
	resp.Complaint = fromComplaint(complaint)
	s.log().Info("complaint submitted via IPC",
		logging.String(logging.FieldEventType, "report_submit"),
		logging.String(logging.FieldRecordID, complaint.LocalID))
	return nil
}

func (s *service) ReportList(req ReportListRequest, resp *ReportListResponse) error {
	statuses := make([]store.SyncStatus, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := store.ParseSyncStatus(status)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	complaints, err := s.daemon.ListComplaints(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Complaints = make([]Complaint, 0, len(complaints))
	for _, complaint := range complaints {
		if complaint == nil {
			continue
		}
		resp.Complaints = append(resp.Complaints, fromComplaint(complaint))
	}
	return nil
}

func (s *service) MediaAttach(req MediaAttachRequest, resp *MediaAttachResponse) error {
	if strings.TrimSpace(req.SourcePath) == "" {
		return errors.New("media attach requires a source path")
	}
	media, err := s.daemon.AttachMedia(s.ctx, req.ComplaintLocalID, req.SourcePath)
	if err != nil {
		return err
	}
	resp.Media = fromMedia(media)
	s.log().Info("media attached via IPC",
		logging.String(logging.FieldEventType, "media_attach"),
		logging.String(logging.FieldRecordID, media.LocalID))
	return nil
}

func (s *service) MediaList(req MediaListRequest, resp *MediaListResponse) error {
	items, err := s.daemon.ListMedia(s.ctx, req.ComplaintLocalID)
	if err != nil {
		return err
	}
	resp.Media = make([]Media, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Media = append(resp.Media, fromMedia(item))
	}
	return nil
}

func (s *service) CaptureStart(req CaptureStartRequest, resp *CaptureStartResponse) error {
	s.log().Debug("capture start requested",
		logging.String(logging.FieldRecordID, req.ComplaintLocalID))
	err := s.daemon.StartCapture(s.ctx, req.ComplaintLocalID, capture.Options{
		MaxDurationSeconds: req.MaxDurationSeconds,
		AudioOnly:          req.AudioOnly,
		VideoOnly:          req.VideoOnly,
	})
	if err != nil {
		return err
	}
	resp.Started = true
	return nil
}

func (s *service) CapturePause(_ CapturePauseRequest, resp *CapturePauseResponse) error {
	if err := s.daemon.PauseCapture(); err != nil {
		return err
	}
	resp.Paused = true
	return nil
}

func (s *service) CaptureResume(_ CaptureResumeRequest, resp *CaptureResumeResponse) error {
	if err := s.daemon.ResumeCapture(); err != nil {
		return err
	}
	resp.Resumed = true
	return nil
}

func (s *service) CaptureStop(_ CaptureStopRequest, resp *CaptureStopResponse) error {
	media, elapsed, err := s.daemon.StopCapture(s.ctx)
	if err != nil {
		return err
	}
	resp.Media = fromMedia(media)
	resp.ElapsedSeconds = elapsed
	s.log().Info("capture finished via IPC",
		logging.String(logging.FieldEventType, "capture_stop"),
		logging.String(logging.FieldRecordID, media.LocalID))
	return nil
}

func (s *service) CaptureReset(_ CaptureResetRequest, resp *CaptureResetResponse) error {
	s.daemon.ResetCapture()
	resp.Reset = true
	return nil
}

func (s *service) SyncTrigger(_ SyncTriggerRequest, resp *SyncTriggerResponse) error {
	s.daemon.TriggerSync()
	resp.Triggered = true
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	statuses := make([]store.EntryStatus, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := store.ParseEntryStatus(status)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	entries, err := s.daemon.ListQueue(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Entries = make([]QueueEntry, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		resp.Entries = append(resp.Entries, fromQueueEntry(entry))
	}
	return nil
}

func (s *service) QueueRetry(_ QueueRetryRequest, resp *QueueRetryResponse) error {
	s.log().Debug("queue retry requested")
	updated, err := s.daemon.RetryErrored(s.ctx)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("errored records reset",
		logging.String(logging.FieldEventType, "queue_retry"),
		logging.Int("updated_count", updated))
	return nil
}

func (s *service) QueuePurge(_ QueuePurgeRequest, resp *QueuePurgeResponse) error {
	s.log().Debug("queue purge requested")
	removed, err := s.daemon.PurgeSynced(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("synced records purged",
		logging.String(logging.FieldEventType, "queue_purge"),
		logging.Int("removed_count", removed))
	return nil
}

func (s *service) QueueReset(_ QueueResetRequest, resp *QueueResetResponse) error {
	s.log().Debug("queue reset stuck requested")
	updated, err := s.daemon.ResetStuck(s.ctx)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("stuck records reset",
		logging.String(logging.FieldEventType, "queue_reset_stuck"),
		logging.Int("updated_count", updated))
	return nil
}

func (s *service) Health(_ HealthRequest, resp *HealthResponse) error {
	health, err := s.daemon.StoreHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.Health = fromHealth(health)
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}

	options := tailOptionsFromRequest(req)
	ctx := s.ctx
	if req.Follow && options.Wait > 0 {
		// Bound the in-RPC wait so a follow request never outlives its
		// client-side timeout by much.
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, options.Wait+500*time.Millisecond)
		defer cancel()
	}

	result, err := logs.Tail(ctx, logPath, options)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if err == nil {
		resp.Lines = result.Lines
	}
	resp.Offset = result.Offset
	return nil
}

func tailOptionsFromRequest(req LogTailRequest) logs.TailOptions {
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	return logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
