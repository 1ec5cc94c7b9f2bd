package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fieldkit/internal/store"
	"fieldkit/internal/testsupport"
)

func TestSaveComplaintAssignsIdentityAndEnqueues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	complaint := testsupport.NewComplaint(t, st, "broken streetlight near shelter")
	if complaint.LocalID == "" {
		t.Fatal("expected generated local id")
	}
	if complaint.SyncStatus != store.SyncPending {
		t.Fatalf("expected pending status, got %s", complaint.SyncStatus)
	}

	entry, err := st.NextReady(ctx, time.Now())
	if err != nil {
		t.Fatalf("NextReady: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a queue entry for the new complaint")
	}
	if entry.RecordKind != store.KindComplaint || entry.RecordLocalID != complaint.LocalID {
		t.Fatalf("unexpected entry %s/%s", entry.RecordKind, entry.RecordLocalID)
	}
}

func TestSaveComplaintRequiresDescription(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	err := st.SaveComplaint(context.Background(), &store.Complaint{Investigator: "x"})
	if err == nil {
		t.Fatal("expected validation error for empty description")
	}
}

func TestSaveMediaRequiresExistingComplaint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	err := st.SaveMedia(context.Background(), &store.Media{
		ComplaintLocalID: "missing",
		FileName:         "a.jpg",
		Path:             "/tmp/a.jpg",
	})
	if err == nil {
		t.Fatal("expected error for media without parent complaint")
	}
}

func TestStatusTransitionsEnforced(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	complaint := testsupport.NewComplaint(t, st, "incident report")

	if err := st.SetComplaintStatus(ctx, complaint.LocalID, store.SyncSynced, "srv-1", ""); err == nil {
		t.Fatal("expected pending -> synced to be rejected")
	}
	if err := st.SetComplaintStatus(ctx, complaint.LocalID, store.SyncSyncing, "", ""); err != nil {
		t.Fatalf("pending -> syncing: %v", err)
	}
	if err := st.SetComplaintStatus(ctx, complaint.LocalID, store.SyncSynced, "srv-1", ""); err != nil {
		t.Fatalf("syncing -> synced: %v", err)
	}
	if err := st.SetComplaintStatus(ctx, complaint.LocalID, store.SyncPending, "", ""); err == nil {
		t.Fatal("expected synced to be terminal")
	}

	got, err := st.GetComplaint(ctx, complaint.LocalID)
	if err != nil {
		t.Fatalf("GetComplaint: %v", err)
	}
	if got.ServerID != "srv-1" {
		t.Fatalf("expected server id to persist, got %q", got.ServerID)
	}
}

func TestEnqueueRejectsDuplicateOutstandingEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	complaint := testsupport.NewComplaint(t, st, "duplicate queue check")

	if err := st.Enqueue(ctx, store.KindComplaint, complaint.LocalID); err == nil {
		t.Fatal("expected duplicate outstanding entry to be rejected")
	}
}

func TestQueueFailureSchedulesBackoff(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewComplaint(t, st, "flaky network")

	entry, err := st.NextReady(ctx, time.Now())
	if err != nil || entry == nil {
		t.Fatalf("NextReady: entry=%v err=%v", entry, err)
	}
	if err := st.MarkEntryProcessing(ctx, entry.ID); err != nil {
		t.Fatalf("MarkEntryProcessing: %v", err)
	}
	if err := st.FailEntry(ctx, entry.ID, "connection refused"); err != nil {
		t.Fatalf("FailEntry: %v", err)
	}

	// Not eligible immediately.
	next, err := st.NextReady(ctx, time.Now())
	if err != nil {
		t.Fatalf("NextReady after failure: %v", err)
	}
	if next != nil {
		t.Fatalf("expected backoff to delay entry, got %+v", next)
	}

	// Eligible once the retry delay passes.
	next, err = st.NextReady(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("NextReady past backoff: %v", err)
	}
	if next == nil {
		t.Fatal("expected entry to become eligible after backoff")
	}
	if next.Status != store.EntryFailed {
		t.Fatalf("expected failed status after failure, got %s", next.Status)
	}
	if next.Attempts != 1 {
		t.Fatalf("expected 1 attempt recorded, got %d", next.Attempts)
	}
	if next.LastError != "connection refused" {
		t.Fatalf("expected failure cause recorded, got %q", next.LastError)
	}

	// A failed entry is still claimable for the next pass.
	if err := st.MarkEntryProcessing(ctx, next.ID); err != nil {
		t.Fatalf("MarkEntryProcessing on failed entry: %v", err)
	}
	if err := st.CompleteEntry(ctx, next.ID); err != nil {
		t.Fatalf("CompleteEntry: %v", err)
	}
}

func TestNextReadyReturnsOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewComplaint(t, st, "first report")
	testsupport.NewComplaint(t, st, "second report")

	entry, err := st.NextReady(ctx, time.Now())
	if err != nil || entry == nil {
		t.Fatalf("NextReady: entry=%v err=%v", entry, err)
	}
	if entry.RecordLocalID != first.LocalID {
		t.Fatalf("expected oldest record first, got %s", entry.RecordLocalID)
	}
}

func TestPurgeSyncedSkipsRecordsWithUnsyncedMedia(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	complaint := testsupport.NewComplaint(t, st, "purge guard check")
	mediaPath := filepath.Join(cfg.Paths.DataDir, "media", "clip.mp4")
	testsupport.WriteFile(t, mediaPath, 64)
	media := testsupport.NewMedia(t, st, complaint.LocalID, mediaPath)

	mustSetStatus := func(setErr error, step string) {
		t.Helper()
		if setErr != nil {
			t.Fatalf("%s: %v", step, setErr)
		}
	}
	mustSetStatus(st.SetComplaintStatus(ctx, complaint.LocalID, store.SyncSyncing, "", ""), "complaint syncing")
	mustSetStatus(st.SetComplaintStatus(ctx, complaint.LocalID, store.SyncSynced, "srv-9", ""), "complaint synced")

	purged, err := st.PurgeSynced(ctx)
	if err != nil {
		t.Fatalf("PurgeSynced: %v", err)
	}
	if purged != 0 {
		t.Fatalf("expected no purge while media is pending, purged %d", purged)
	}

	mustSetStatus(st.SetMediaStatus(ctx, media.LocalID, store.SyncSyncing, ""), "media syncing")
	mustSetStatus(st.SetMediaStatus(ctx, media.LocalID, store.SyncSynced, ""), "media synced")

	purged, err = st.PurgeSynced(ctx)
	if err != nil {
		t.Fatalf("PurgeSynced after media synced: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged record, got %d", purged)
	}
	if got, err := st.GetComplaint(ctx, complaint.LocalID); err != nil || got != nil {
		t.Fatalf("expected complaint removed, got %+v err=%v", got, err)
	}
}

func TestRetryErroredResetsRecordAndEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	complaint := testsupport.NewComplaint(t, st, "retry me")
	if err := st.SetComplaintStatus(ctx, complaint.LocalID, store.SyncSyncing, "", ""); err != nil {
		t.Fatalf("syncing: %v", err)
	}
	if err := st.SetComplaintStatus(ctx, complaint.LocalID, store.SyncError, "", "server rejected payload"); err != nil {
		t.Fatalf("error: %v", err)
	}

	reset, err := st.RetryErrored(ctx)
	if err != nil {
		t.Fatalf("RetryErrored: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 record reset, got %d", reset)
	}

	got, err := st.GetComplaint(ctx, complaint.LocalID)
	if err != nil {
		t.Fatalf("GetComplaint: %v", err)
	}
	if got.SyncStatus != store.SyncPending {
		t.Fatalf("expected pending after retry, got %s", got.SyncStatus)
	}
	if got.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", got.ErrorMessage)
	}
}

func TestResetStuckSyncingRecoversAfterCrash(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	complaint := testsupport.NewComplaint(t, st, "crash recovery")
	if err := st.SetComplaintStatus(ctx, complaint.LocalID, store.SyncSyncing, "", ""); err != nil {
		t.Fatalf("syncing: %v", err)
	}
	entry, err := st.NextReady(ctx, time.Now())
	if err != nil || entry == nil {
		t.Fatalf("NextReady: entry=%v err=%v", entry, err)
	}
	if err := st.MarkEntryProcessing(ctx, entry.ID); err != nil {
		t.Fatalf("MarkEntryProcessing: %v", err)
	}

	reset, err := st.ResetStuckSyncing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckSyncing: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 stuck record reset, got %d", reset)
	}

	entry, err = st.NextReady(ctx, time.Now())
	if err != nil {
		t.Fatalf("NextReady after reset: %v", err)
	}
	if entry == nil {
		t.Fatal("expected processing entry returned to pending")
	}
}

func TestHealthCountsRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	complaint := testsupport.NewComplaint(t, st, "health summary")
	mediaPath := filepath.Join(cfg.Paths.DataDir, "media", "photo.jpg")
	testsupport.WriteFile(t, mediaPath, 32)
	testsupport.NewMedia(t, st, complaint.LocalID, mediaPath)

	summary, err := st.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if summary.Complaints != 1 || summary.Media != 1 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if summary.Pending != 2 {
		t.Fatalf("expected 2 pending records, got %d", summary.Pending)
	}
	if summary.PendingWork() != 2 {
		t.Fatalf("unexpected pending work %d", summary.PendingWork())
	}
}
