package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fieldkit/internal/capture"
	"fieldkit/internal/compress"
	"fieldkit/internal/config"
	"fieldkit/internal/daemon"
	"fieldkit/internal/logging"
	"fieldkit/internal/store"
	"fieldkit/internal/syncer"
	"fieldkit/internal/testsupport"
)

// scriptedRecorder satisfies capture.Recorder without touching real devices.
type scriptedRecorder struct {
	outputPath string
	started    bool
	aborted    bool
}

func (r *scriptedRecorder) Start(ctx context.Context, opts capture.RecordOptions) error {
	r.started = true
	return nil
}

func (r *scriptedRecorder) Pause() error { return nil }

func (r *scriptedRecorder) Resume() error { return nil }

func (r *scriptedRecorder) Stop() (string, error) {
	return r.outputPath, nil
}

func (r *scriptedRecorder) Abort() error {
	r.aborted = true
	return nil
}

func newTestDaemon(t *testing.T, recorder capture.Recorder) (*daemon.Daemon, *config.Config, *store.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	coordinator := syncer.New(cfg, st, nil, nil, nil, logger)
	controller := capture.NewController(recorder, cfg.Capture.MaxDurationSeconds, logger)
	compressor := compress.New(cfg, logger)

	d, err := daemon.New(cfg, st, coordinator, nil, controller, compressor, nil, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, cfg, st
}

func TestDaemonStartStopLifecycle(t *testing.T) {
	d, _, _ := newTestDaemon(t, &scriptedRecorder{})
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running status after start")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), status.PID)
	}
	if status.LockFilePath == "" || status.StoreDBPath == "" {
		t.Fatal("expected lock and store paths in status")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected stopped status after stop")
	}
}

func TestDaemonSecondInstanceRejected(t *testing.T) {
	d1, cfg, _ := newTestDaemon(t, &scriptedRecorder{})
	ctx := context.Background()

	if err := d1.Start(ctx); err != nil {
		t.Fatalf("Start first instance: %v", err)
	}
	defer d1.Stop()

	st2 := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	coordinator := syncer.New(cfg, st2, nil, nil, nil, logger)
	d2, err := daemon.New(cfg, st2, coordinator, nil, nil, nil, nil, logger)
	if err != nil {
		t.Fatalf("daemon.New second instance: %v", err)
	}

	if err := d2.Start(ctx); err == nil {
		d2.Stop()
		t.Fatal("expected second instance start to fail while lock is held")
	}

	d1.Stop()
	if err := d2.Start(ctx); err != nil {
		t.Fatalf("Start after lock released: %v", err)
	}
	d2.Stop()
}

func TestSubmitComplaintPersistsAndQueues(t *testing.T) {
	d, _, st := newTestDaemon(t, &scriptedRecorder{})
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	complaint := &store.Complaint{
		Investigator: "officer-7",
		IncidentType: "physical",
		Description:  "reported at the district office",
	}
	if err := d.SubmitComplaint(ctx, complaint); err != nil {
		t.Fatalf("SubmitComplaint: %v", err)
	}
	if complaint.LocalID == "" {
		t.Fatal("expected assigned local id")
	}

	complaints, err := d.ListComplaints(ctx, nil)
	if err != nil {
		t.Fatalf("ListComplaints: %v", err)
	}
	if len(complaints) != 1 {
		t.Fatalf("expected 1 complaint, got %d", len(complaints))
	}

	count, err := st.OutstandingCount(ctx)
	if err != nil {
		t.Fatalf("OutstandingCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 outstanding queue entry, got %d", count)
	}
}

func TestAttachMediaCopiesIntoMediaDir(t *testing.T) {
	d, cfg, _ := newTestDaemon(t, &scriptedRecorder{})
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	complaint := &store.Complaint{Description: "statement attached"}
	if err := d.SubmitComplaint(ctx, complaint); err != nil {
		t.Fatalf("SubmitComplaint: %v", err)
	}

	source := filepath.Join(t.TempDir(), "statement.pdf")
	testsupport.WriteFile(t, source, 4096)

	media, err := d.AttachMedia(ctx, complaint.LocalID, source)
	if err != nil {
		t.Fatalf("AttachMedia: %v", err)
	}
	if media.Kind != "document" {
		t.Fatalf("expected document kind, got %q", media.Kind)
	}
	if !strings.HasPrefix(media.Path, cfg.MediaDir()) {
		t.Fatalf("expected media under %s, got %s", cfg.MediaDir(), media.Path)
	}
	if _, err := os.Stat(media.Path); err != nil {
		t.Fatalf("expected durable media file: %v", err)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("expected source file to survive: %v", err)
	}

	listed, err := d.ListMedia(ctx, complaint.LocalID)
	if err != nil {
		t.Fatalf("ListMedia: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 media record, got %d", len(listed))
	}
}

func TestStopCaptureAttachesRecording(t *testing.T) {
	recordingPath := filepath.Join(t.TempDir(), "recording.mkv")
	recorder := &scriptedRecorder{outputPath: recordingPath}

	d, _, _ := newTestDaemon(t, recorder)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	complaint := &store.Complaint{Description: "witness interview"}
	if err := d.SubmitComplaint(ctx, complaint); err != nil {
		t.Fatalf("SubmitComplaint: %v", err)
	}

	if err := d.StartCapture(ctx, complaint.LocalID, capture.Options{}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	if !recorder.started {
		t.Fatal("expected recorder start")
	}

	testsupport.WriteFile(t, recordingPath, 2048)

	media, _, err := d.StopCapture(ctx)
	if err != nil {
		t.Fatalf("StopCapture: %v", err)
	}
	if media.ComplaintLocalID != complaint.LocalID {
		t.Fatalf("expected media attached to %s, got %s", complaint.LocalID, media.ComplaintLocalID)
	}
	if media.Kind != "video" {
		t.Fatalf("expected video kind, got %q", media.Kind)
	}

	listed, err := d.ListMedia(ctx, complaint.LocalID)
	if err != nil {
		t.Fatalf("ListMedia: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 media record, got %d", len(listed))
	}
}

func TestStartCaptureUnknownComplaint(t *testing.T) {
	d, _, _ := newTestDaemon(t, &scriptedRecorder{})
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.StartCapture(ctx, "missing-id", capture.Options{}); err == nil {
		t.Fatal("expected error for unknown complaint")
	}
}
