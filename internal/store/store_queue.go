package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldkit/internal/services"
)

const queueColumns = `id, record_kind, record_local_id, status, attempts,
	next_attempt_at, last_error, created_at, updated_at`

// retryBackoff maps the attempt count already made to the delay before the
// next try. Attempts beyond the table settle at hourly retries so a record
// is never abandoned automatically.
var retryBackoff = []time.Duration{
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
}

func backoffFor(attempts int) time.Duration {
	if attempts <= 0 {
		return retryBackoff[0]
	}
	if attempts <= len(retryBackoff) {
		return retryBackoff[attempts-1]
	}
	return time.Hour
}

func enqueueTx(ctx context.Context, tx *sql.Tx, kind RecordKind, recordLocalID string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_queue (record_kind, record_local_id, status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)`,
		string(kind), recordLocalID, string(EntryPending),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "enqueue",
			fmt.Sprintf("%s %s", kind, recordLocalID), err)
	}
	return nil
}

// Enqueue creates a new pending queue entry for a record. The schema rejects
// a second outstanding entry for the same record, which Enqueue reports as an
// invalid state rather than a storage fault.
func (s *Store) Enqueue(ctx context.Context, kind RecordKind, recordLocalID string) error {
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "enqueue", "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := enqueueTx(ctx, tx, kind, recordLocalID, now); err != nil {
		if isUniqueViolation(err) {
			return services.Wrap(services.ErrInvalidState, "store", "enqueue",
				fmt.Sprintf("%s %s already has an outstanding entry", kind, recordLocalID), nil)
		}
		return err
	}
	return tx.Commit()
}

// NextReady returns the oldest pending or failed entry whose retry delay has
// elapsed, or nil when nothing is eligible.
func (s *Store) NextReady(ctx context.Context, now time.Time) (*QueueEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+queueColumns+` FROM sync_queue
		WHERE status IN (?, ?)
		  AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
		ORDER BY created_at ASC, id ASC
		LIMIT 1`,
		string(EntryPending), string(EntryFailed), now.UTC().Format(time.RFC3339Nano))
	entry, err := scanQueueEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "next ready entry", "", err)
	}
	return entry, nil
}

// MarkEntryProcessing claims a pending or failed entry for the current sync
// pass.
func (s *Store) MarkEntryProcessing(ctx context.Context, entryID int64) error {
	return s.updateEntryStatus(ctx, entryID, EntryProcessing, "", nil, EntryPending, EntryFailed)
}

// CompleteEntry marks a processing entry as done. Completed entries stay in
// the table as an audit trail until queue maintenance clears them.
func (s *Store) CompleteEntry(ctx context.Context, entryID int64) error {
	return s.updateEntryStatus(ctx, entryID, EntryCompleted, "", nil, EntryProcessing)
}

// FailEntry marks a processing entry as failed with an incremented attempt
// count and a scheduled retry time. Failed entries stay retry-eligible; the
// status records that the last attempt did not go through.
func (s *Store) FailEntry(ctx context.Context, entryID int64, cause string) error {
	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return services.Wrap(services.ErrValidation, "store", "fail entry",
			fmt.Sprintf("entry %d not found", entryID), nil)
	}

	attempts := entry.Attempts + 1
	nextAttempt := time.Now().UTC().Add(backoffFor(attempts))
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		UPDATE sync_queue
		SET status = ?, attempts = ?, next_attempt_at = ?, last_error = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(EntryFailed), attempts, nextAttempt.Format(time.RFC3339Nano),
		nullableString(cause), now, entryID, string(EntryProcessing))
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "fail entry",
			fmt.Sprintf("entry %d", entryID), err)
	}
	return nil
}

// ListEntries returns queue entries oldest first, optionally filtered by
// status.
func (s *Store) ListEntries(ctx context.Context, statuses ...EntryStatus) ([]*QueueEntry, error) {
	query := `SELECT ` + queueColumns + ` FROM sync_queue`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "list entries", "", err)
	}
	defer rows.Close()

	var entries []*QueueEntry
	for rows.Next() {
		entry, scanErr := scanQueueEntry(rows)
		if scanErr != nil {
			return nil, services.Wrap(services.ErrStorage, "store", "list entries", "scan row", scanErr)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "list entries", "iterate rows", err)
	}
	return entries, nil
}

// OutstandingCount reports how many entries still wait for a successful sync.
func (s *Store) OutstandingCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE status != ?`,
		string(EntryCompleted)).Scan(&count)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "store", "count outstanding", "", err)
	}
	return count, nil
}

func (s *Store) getEntry(ctx context.Context, entryID int64) (*QueueEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+queueColumns+` FROM sync_queue WHERE id = ?`, entryID)
	entry, err := scanQueueEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "get entry",
			fmt.Sprintf("entry %d", entryID), err)
	}
	return entry, nil
}

func (s *Store) updateEntryStatus(ctx context.Context, entryID int64, to EntryStatus, lastError string, nextAttempt *time.Time, from ...EntryStatus) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	placeholders := make([]string, len(from))
	args := []any{string(to), nullableString(lastError), nullableTime(nextAttempt), now, entryID}
	for i, status := range from {
		placeholders[i] = "?"
		args = append(args, string(status))
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE sync_queue
		SET status = ?, last_error = ?, next_attempt_at = ?, updated_at = ?
		WHERE id = ? AND status IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "update entry",
			fmt.Sprintf("entry %d", entryID), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "update entry",
			fmt.Sprintf("entry %d", entryID), err)
	}
	if affected == 0 {
		names := make([]string, len(from))
		for i, status := range from {
			names[i] = string(status)
		}
		return services.Wrap(services.ErrInvalidState, "store", "update entry",
			fmt.Sprintf("entry %d is not %s", entryID, strings.Join(names, " or ")), nil)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

func scanQueueEntry(row rowScanner) (*QueueEntry, error) {
	var (
		entry         QueueEntry
		kind          string
		status        string
		nextAttemptAt sql.NullString
		lastError     sql.NullString
		createdAt     string
		updatedAt     string
	)
	if err := row.Scan(
		&entry.ID,
		&kind,
		&entry.RecordLocalID,
		&status,
		&entry.Attempts,
		&nextAttemptAt,
		&lastError,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	entry.RecordKind = RecordKind(kind)
	entry.Status = EntryStatus(status)
	entry.LastError = lastError.String
	if nextAttemptAt.Valid && nextAttemptAt.String != "" {
		parsed, err := parseTimeString(nextAttemptAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse next_attempt_at: %w", err)
		}
		entry.NextAttemptAt = &parsed
	}

	var err error
	if entry.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if entry.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &entry, nil
}
