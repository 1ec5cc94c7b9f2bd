package syncer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fieldkit/internal/connectivity"
	"fieldkit/internal/logging"
	"fieldkit/internal/remote"
	"fieldkit/internal/services"
	"fieldkit/internal/store"
	"fieldkit/internal/testsupport"
)

type fakeAPI struct {
	mu          sync.Mutex
	submitted   []remote.ComplaintPayload
	uploads     []remote.UploadRequest
	submitErr   map[string]error
	nextID      int
	uploadCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{submitErr: make(map[string]error)}
}

func (f *fakeAPI) SubmitComplaint(_ context.Context, payload remote.ComplaintPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.submitErr[payload.LocalID]; err != nil {
		return "", err
	}
	f.submitted = append(f.submitted, payload)
	f.nextID++
	return "srv-" + payload.LocalID, nil
}

func (f *fakeAPI) RequestUpload(_ context.Context, request remote.UploadRequest) (remote.UploadTarget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, request)
	return remote.UploadTarget{URL: "http://uploads.test/" + request.FileName}, nil
}

func (f *fakeAPI) Upload(context.Context, remote.UploadTarget, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	return nil
}

func TestRunPassDeliversComplaintAndMedia(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	api := newFakeAPI()
	coordinator := New(cfg, st, api, nil, nil, logging.NewNop())
	ctx := context.Background()

	complaint := testsupport.NewComplaint(t, st, "first field report")
	mediaPath := filepath.Join(cfg.Paths.DataDir, "media", "photo.jpg")
	testsupport.WriteFile(t, mediaPath, 128)
	media := testsupport.NewMedia(t, st, complaint.LocalID, mediaPath)

	summary, err := coordinator.RunPass(ctx)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if summary.Synced != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Pending != 0 {
		t.Fatalf("expected empty queue, %d pending", summary.Pending)
	}

	gotComplaint, err := st.GetComplaint(ctx, complaint.LocalID)
	if err != nil {
		t.Fatalf("GetComplaint: %v", err)
	}
	if gotComplaint.SyncStatus != store.SyncSynced {
		t.Fatalf("expected complaint synced, got %s", gotComplaint.SyncStatus)
	}
	if gotComplaint.ServerID != "srv-"+complaint.LocalID {
		t.Fatalf("expected server id persisted, got %q", gotComplaint.ServerID)
	}

	gotMedia, err := st.GetMedia(ctx, media.LocalID)
	if err != nil {
		t.Fatalf("GetMedia: %v", err)
	}
	if gotMedia.SyncStatus != store.SyncSynced {
		t.Fatalf("expected media synced, got %s", gotMedia.SyncStatus)
	}

	// The media upload request carries the parent's server id so the backend
	// can attach the file.
	if len(api.uploads) != 1 {
		t.Fatalf("expected 1 upload request, got %d", len(api.uploads))
	}
	if api.uploads[0].ComplaintID != "srv-"+complaint.LocalID {
		t.Fatalf("expected parent server id on upload request, got %q", api.uploads[0].ComplaintID)
	}
	if api.uploadCalls != 1 {
		t.Fatalf("expected 1 binary upload, got %d", api.uploadCalls)
	}
}

func TestRunPassIsolatesPerRecordFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	api := newFakeAPI()
	coordinator := New(cfg, st, api, nil, nil, logging.NewNop())
	ctx := context.Background()

	bad := testsupport.NewComplaint(t, st, "rejected by server")
	good := testsupport.NewComplaint(t, st, "accepted by server")
	api.submitErr[bad.LocalID] = &remote.APIError{StatusCode: 500, Reason: "internal error"}

	summary, err := coordinator.RunPass(ctx)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if summary.Synced != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	gotBad, _ := st.GetComplaint(ctx, bad.LocalID)
	if gotBad.SyncStatus != store.SyncError {
		t.Fatalf("expected failed record in error status, got %s", gotBad.SyncStatus)
	}
	if gotBad.ErrorMessage == "" {
		t.Fatal("expected failure recorded on the record")
	}
	gotGood, _ := st.GetComplaint(ctx, good.LocalID)
	if gotGood.SyncStatus != store.SyncSynced {
		t.Fatalf("expected good record synced, got %s", gotGood.SyncStatus)
	}

	// The failed entry stays queued with a retry delay, never dropped.
	entries, err := st.ListEntries(ctx, store.EntryFailed)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].RecordLocalID != bad.LocalID {
		t.Fatalf("expected failed record requeued, got %+v", entries)
	}
	if entries[0].NextAttemptAt == nil {
		t.Fatal("expected retry delay scheduled")
	}
}

func TestErroredRecordRetriesOnLaterPass(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	api := newFakeAPI()
	coordinator := New(cfg, st, api, nil, nil, logging.NewNop())
	ctx := context.Background()

	complaint := testsupport.NewComplaint(t, st, "transient failure")
	api.submitErr[complaint.LocalID] = errors.New("connection refused")

	if _, err := coordinator.RunPass(ctx); err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	// Clear the server fault and the backoff, then sync again.
	delete(api.submitErr, complaint.LocalID)
	if _, err := st.RetryErrored(ctx); err != nil {
		t.Fatalf("RetryErrored: %v", err)
	}

	summary, err := coordinator.RunPass(ctx)
	if err != nil {
		t.Fatalf("second RunPass: %v", err)
	}
	if summary.Synced != 1 {
		t.Fatalf("expected retried record delivered, got %+v", summary)
	}
	got, _ := st.GetComplaint(ctx, complaint.LocalID)
	if got.SyncStatus != store.SyncSynced {
		t.Fatalf("expected synced after retry, got %s", got.SyncStatus)
	}
}

func TestRunPassRefusesConcurrentPass(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	coordinator := New(cfg, st, newFakeAPI(), nil, nil, logging.NewNop())

	if !coordinator.beginPass() {
		t.Fatal("beginPass should succeed when idle")
	}
	defer coordinator.endPass()

	_, err := coordinator.RunPass(context.Background())
	if !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("expected invalid state while pass in flight, got %v", err)
	}
}

func TestRunPassWithoutClientFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	coordinator := New(cfg, st, nil, nil, nil, logging.NewNop())

	_, err := coordinator.RunPass(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestOnlineTransitionDeliversQueuedRecord(t *testing.T) {
	var healthy atomic.Bool
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer probe.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemote(probe.URL))
	cfg.Sync.PollInterval = 3600
	cfg.Sync.ProbeInterval = 1
	st := testsupport.MustOpenStore(t, cfg)
	api := newFakeAPI()
	monitor := connectivity.NewMonitor(cfg, logging.NewNop())
	coordinator := New(cfg, st, api, monitor, nil, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	complaint := testsupport.NewComplaint(t, st, "queued while offline")

	coordinator.Start(ctx)
	defer coordinator.Stop()
	monitor.Start(ctx)
	defer monitor.Stop()

	// The first probe finds the endpoint down; the record must stay queued.
	waitForCondition(t, "monitor observes offline", func() bool {
		return monitor.State() == connectivity.StateOffline
	})
	if pending, err := st.OutstandingCount(ctx); err != nil || pending != 1 {
		t.Fatalf("expected record still queued while offline, pending=%d err=%v", pending, err)
	}

	// Bring the endpoint back. The offline to online transition alone must
	// drain the queue; the poll ticker is an hour away and nothing calls
	// TriggerSync.
	healthy.Store(true)
	waitForCondition(t, "queue drained after reconnect", func() bool {
		pending, err := st.OutstandingCount(ctx)
		return err == nil && pending == 0
	})

	got, err := st.GetComplaint(ctx, complaint.LocalID)
	if err != nil {
		t.Fatalf("GetComplaint: %v", err)
	}
	if got.SyncStatus != store.SyncSynced {
		t.Fatalf("expected complaint synced after reconnect, got %s", got.SyncStatus)
	}
}

func waitForCondition(t *testing.T, what string, predicate func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if predicate() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestTriggerSyncDrainsQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sync.PollInterval = 3600
	st := testsupport.MustOpenStore(t, cfg)
	api := newFakeAPI()
	coordinator := New(cfg, st, api, nil, nil, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testsupport.NewComplaint(t, st, "manual trigger")

	coordinator.Start(ctx)
	defer coordinator.Stop()
	coordinator.TriggerSync()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pending, err := st.OutstandingCount(ctx); err == nil && pending == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("queue did not drain after manual trigger")
}
