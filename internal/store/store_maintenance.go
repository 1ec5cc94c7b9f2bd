package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"fieldkit/internal/services"
)

// PurgeSynced removes synced complaints whose media are all synced, deleting
// local media files along the way. Records with any unsynced attachment are
// left alone so no evidence is lost before the server holds a copy.
func (s *Store) PurgeSynced(ctx context.Context) (int, error) {
	complaints, err := s.ListComplaints(ctx, SyncSynced)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, complaint := range complaints {
		media, err := s.ListMedia(ctx, complaint.LocalID)
		if err != nil {
			return purged, err
		}
		eligible := true
		for _, item := range media {
			if item.SyncStatus != SyncSynced {
				eligible = false
				break
			}
		}
		if !eligible {
			continue
		}

		for _, item := range media {
			if item.Path != "" {
				if err := os.Remove(item.Path); err != nil && !os.IsNotExist(err) {
					return purged, services.Wrap(services.ErrStorage, "store", "purge synced",
						fmt.Sprintf("remove media file %s", item.Path), err)
				}
			}
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return purged, services.Wrap(services.ErrStorage, "store", "purge synced", "begin transaction", err)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM media WHERE complaint_local_id = ?`, complaint.LocalID)
		if err == nil {
			_, err = tx.ExecContext(ctx, `DELETE FROM complaints WHERE local_id = ?`, complaint.LocalID)
		}
		if err == nil {
			_, err = tx.ExecContext(ctx, `DELETE FROM sync_queue WHERE record_local_id = ? AND status = ?`,
				complaint.LocalID, string(EntryCompleted))
		}
		if err != nil {
			_ = tx.Rollback()
			return purged, services.Wrap(services.ErrStorage, "store", "purge synced", complaint.LocalID, err)
		}
		if err := tx.Commit(); err != nil {
			return purged, services.Wrap(services.ErrStorage, "store", "purge synced", "commit", err)
		}
		purged++
	}
	return purged, nil
}

// RetryErrored moves errored records back to pending and re-enqueues any
// that lost their queue entry. It returns the number of records reset.
func (s *Store) RetryErrored(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	reset := 0

	complaints, err := s.ListComplaints(ctx, SyncError)
	if err != nil {
		return 0, err
	}
	for _, complaint := range complaints {
		if err := s.resetRecord(ctx, KindComplaint, complaint.LocalID, now); err != nil {
			return reset, err
		}
		reset++
	}

	media, err := s.ListMedia(ctx, "")
	if err != nil {
		return reset, err
	}
	for _, item := range media {
		if item.SyncStatus != SyncError {
			continue
		}
		if err := s.resetRecord(ctx, KindMedia, item.LocalID, now); err != nil {
			return reset, err
		}
		reset++
	}
	return reset, nil
}

func (s *Store) resetRecord(ctx context.Context, kind RecordKind, localID string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "retry errored", "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	table := "complaints"
	if kind == KindMedia {
		table = "media"
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE `+table+` SET sync_status = ?, error_message = NULL, updated_at = ? WHERE local_id = ?`,
		string(SyncPending), now.Format(time.RFC3339Nano), localID)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "retry errored", localID, err)
	}

	// Clear any retry delay on the outstanding entry so the next pass picks
	// it up immediately. Records without an entry get a fresh one.
	result, err := tx.ExecContext(ctx, `
		UPDATE sync_queue
		SET status = ?, next_attempt_at = NULL, updated_at = ?
		WHERE record_kind = ? AND record_local_id = ? AND status != ?`,
		string(EntryPending), now.Format(time.RFC3339Nano),
		string(kind), localID, string(EntryCompleted))
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "retry errored", localID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "retry errored", localID, err)
	}
	if affected == 0 {
		if err := enqueueTx(ctx, tx, kind, localID, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ResetStuckSyncing recovers from an unclean shutdown by returning any
// record left in syncing and any entry left in processing back to pending.
func (s *Store) ResetStuckSyncing(ctx context.Context) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	total := 0

	for _, table := range []string{"complaints", "media"} {
		result, err := s.db.ExecContext(ctx,
			`UPDATE `+table+` SET sync_status = ?, updated_at = ? WHERE sync_status = ?`,
			string(SyncPending), now, string(SyncSyncing))
		if err != nil {
			return total, services.Wrap(services.ErrStorage, "store", "reset stuck syncing", table, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return total, services.Wrap(services.ErrStorage, "store", "reset stuck syncing", table, err)
		}
		total += int(affected)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, updated_at = ? WHERE status = ?`,
		string(EntryPending), now, string(EntryProcessing))
	if err != nil {
		return total, services.Wrap(services.ErrStorage, "store", "reset stuck syncing", "sync_queue", err)
	}
	return total, nil
}

// Health aggregates record counts per lifecycle state for status reporting.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	var summary HealthSummary

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM complaints`).Scan(&summary.Complaints)
	if err != nil {
		return summary, services.Wrap(services.ErrStorage, "store", "health", "count complaints", err)
	}
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&summary.Media)
	if err != nil {
		return summary, services.Wrap(services.ErrStorage, "store", "health", "count media", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sync_status, COUNT(*) FROM complaints GROUP BY sync_status
		UNION ALL
		SELECT sync_status, COUNT(*) FROM media GROUP BY sync_status`)
	if err != nil {
		return summary, services.Wrap(services.ErrStorage, "store", "health", "count statuses", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return summary, services.Wrap(services.ErrStorage, "store", "health", "scan counts", err)
		}
		switch SyncStatus(status) {
		case SyncPending:
			summary.Pending += count
		case SyncSyncing:
			summary.Syncing += count
		case SyncSynced:
			summary.Synced += count
		case SyncError:
			summary.Errored += count
		}
	}
	if err := rows.Err(); err != nil {
		return summary, services.Wrap(services.ErrStorage, "store", "health", "iterate counts", err)
	}
	return summary, nil
}
