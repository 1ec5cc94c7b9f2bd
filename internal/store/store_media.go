package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fieldkit/internal/services"
)

const mediaColumns = `id, local_id, complaint_local_id, file_name, mime_type,
	kind, size_bytes, path, sync_status, error_message, created_at, updated_at`

// SaveMedia persists a new media record under an existing complaint and
// enqueues it for sync in the same transaction.
func (s *Store) SaveMedia(ctx context.Context, media *Media) error {
	if media == nil {
		return services.Wrap(services.ErrValidation, "store", "save media", "nil media", nil)
	}
	if media.ComplaintLocalID == "" {
		return services.Wrap(services.ErrValidation, "store", "save media", "complaint local id is required", nil)
	}
	if media.Path == "" {
		return services.Wrap(services.ErrValidation, "store", "save media", "file path is required", nil)
	}
	if err := s.Preflight(ctx); err != nil {
		return err
	}

	parent, err := s.GetComplaint(ctx, media.ComplaintLocalID)
	if err != nil {
		return err
	}
	if parent == nil {
		return services.Wrap(services.ErrValidation, "store", "save media",
			fmt.Sprintf("complaint %s not found", media.ComplaintLocalID), nil)
	}

	if media.LocalID == "" {
		media.LocalID = uuid.NewString()
	}
	if media.SyncStatus == "" {
		media.SyncStatus = SyncPending
	}
	now := time.Now().UTC()
	media.CreatedAt = now
	media.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "save media", "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO media (local_id, complaint_local_id, file_name, mime_type, kind,
			size_bytes, path, sync_status, error_message, created_at, updated_at)
		VALUES (`+makePlaceholders(11)+`)`,
		media.LocalID,
		media.ComplaintLocalID,
		media.FileName,
		nullableString(media.MIMEType),
		nullableString(media.Kind),
		media.SizeBytes,
		media.Path,
		string(media.SyncStatus),
		nullableString(media.ErrorMessage),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "save media", "insert media", err)
	}
	media.ID, err = result.LastInsertId()
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "save media", "read insert id", err)
	}

	if err := enqueueTx(ctx, tx, KindMedia, media.LocalID, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrStorage, "store", "save media", "commit", err)
	}
	return nil
}

// GetMedia loads one media record by local identifier.
func (s *Store) GetMedia(ctx context.Context, localID string) (*Media, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE local_id = ?`, localID)
	media, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "get media", localID, err)
	}
	return media, nil
}

// ListMedia returns media records for a complaint oldest first. When
// complaintLocalID is empty, all media records are returned.
func (s *Store) ListMedia(ctx context.Context, complaintLocalID string) ([]*Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media`
	var args []any
	if complaintLocalID != "" {
		query += ` WHERE complaint_local_id = ?`
		args = append(args, complaintLocalID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "list media", "", err)
	}
	defer rows.Close()

	var items []*Media
	for rows.Next() {
		media, scanErr := scanMedia(rows)
		if scanErr != nil {
			return nil, services.Wrap(services.ErrStorage, "store", "list media", "scan row", scanErr)
		}
		items = append(items, media)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "list media", "iterate rows", err)
	}
	return items, nil
}

// SetMediaStatus moves a media record through its sync lifecycle, enforcing
// legal transitions.
func (s *Store) SetMediaStatus(ctx context.Context, localID string, status SyncStatus, errorMessage string) error {
	media, err := s.GetMedia(ctx, localID)
	if err != nil {
		return err
	}
	if media == nil {
		return services.Wrap(services.ErrValidation, "store", "set media status",
			fmt.Sprintf("media %s not found", localID), nil)
	}
	if !CanTransition(media.SyncStatus, status) {
		return services.Wrap(services.ErrInvalidState, "store", "set media status",
			fmt.Sprintf("cannot move media %s from %s to %s", localID, media.SyncStatus, status), nil)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		UPDATE media
		SET sync_status = ?, error_message = ?, updated_at = ?
		WHERE local_id = ?`,
		string(status), nullableString(errorMessage), now, localID)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "set media status", localID, err)
	}
	return nil
}

func scanMedia(row rowScanner) (*Media, error) {
	var (
		media        Media
		mimeType     sql.NullString
		kind         sql.NullString
		status       string
		errorMessage sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(
		&media.ID,
		&media.LocalID,
		&media.ComplaintLocalID,
		&media.FileName,
		&mimeType,
		&kind,
		&media.SizeBytes,
		&media.Path,
		&status,
		&errorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	media.MIMEType = mimeType.String
	media.Kind = kind.String
	media.SyncStatus = SyncStatus(status)
	media.ErrorMessage = errorMessage.String

	var err error
	if media.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if media.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &media, nil
}
