package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldkit/internal/services"
)

const complaintColumns = `id, local_id, investigator, beneficiary, incident_type,
	incident_date, location, description, latitude, longitude, services_json,
	comment, sync_status, server_id, error_message, created_at, updated_at`

// SaveComplaint persists a new complaint and enqueues it for sync in a single
// transaction. A generated local identifier is assigned when missing.
func (s *Store) SaveComplaint(ctx context.Context, complaint *Complaint) error {
	if complaint == nil {
		return services.Wrap(services.ErrValidation, "store", "save complaint", "nil complaint", nil)
	}
	if strings.TrimSpace(complaint.Description) == "" {
		return services.Wrap(services.ErrValidation, "store", "save complaint", "description is required", nil)
	}
	if err := s.Preflight(ctx); err != nil {
		return err
	}

	if complaint.LocalID == "" {
		complaint.LocalID = uuid.NewString()
	}
	if complaint.SyncStatus == "" {
		complaint.SyncStatus = SyncPending
	}
	now := time.Now().UTC()
	complaint.CreatedAt = now
	complaint.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "save complaint", "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO complaints (local_id, investigator, beneficiary, incident_type,
			incident_date, location, description, latitude, longitude, services_json,
			comment, sync_status, server_id, error_message, created_at, updated_at)
		VALUES (`+makePlaceholders(16)+`)`,
		complaint.LocalID,
		nullableString(complaint.Investigator),
		nullableString(complaint.Beneficiary),
		nullableString(complaint.IncidentType),
		nullableString(complaint.IncidentDate),
		nullableString(complaint.Location),
		complaint.Description,
		nullableFloat(complaint.Latitude),
		nullableFloat(complaint.Longitude),
		nullableString(complaint.ServicesJSON),
		nullableString(complaint.Comment),
		string(complaint.SyncStatus),
		nullableString(complaint.ServerID),
		nullableString(complaint.ErrorMessage),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "save complaint", "insert complaint", err)
	}
	complaint.ID, err = result.LastInsertId()
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "save complaint", "read insert id", err)
	}

	if err := enqueueTx(ctx, tx, KindComplaint, complaint.LocalID, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrStorage, "store", "save complaint", "commit", err)
	}
	return nil
}

// GetComplaint loads one complaint by local identifier.
func (s *Store) GetComplaint(ctx context.Context, localID string) (*Complaint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE local_id = ?`, localID)
	complaint, err := scanComplaint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "get complaint", localID, err)
	}
	return complaint, nil
}

// ListComplaints returns complaints newest first, optionally filtered by
// sync status. An empty filter returns everything.
func (s *Store) ListComplaints(ctx context.Context, statuses ...SyncStatus) ([]*Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE sync_status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "list complaints", "", err)
	}
	defer rows.Close()

	var complaints []*Complaint
	for rows.Next() {
		complaint, scanErr := scanComplaint(rows)
		if scanErr != nil {
			return nil, services.Wrap(services.ErrStorage, "store", "list complaints", "scan row", scanErr)
		}
		complaints = append(complaints, complaint)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "list complaints", "iterate rows", err)
	}
	return complaints, nil
}

// SetComplaintStatus moves a complaint through its sync lifecycle, enforcing
// legal transitions. Synced records additionally persist the server-assigned
// identifier; errored records keep the failure message for operators.
func (s *Store) SetComplaintStatus(ctx context.Context, localID string, status SyncStatus, serverID, errorMessage string) error {
	complaint, err := s.GetComplaint(ctx, localID)
	if err != nil {
		return err
	}
	if complaint == nil {
		return services.Wrap(services.ErrValidation, "store", "set complaint status",
			fmt.Sprintf("complaint %s not found", localID), nil)
	}
	if !CanTransition(complaint.SyncStatus, status) {
		return services.Wrap(services.ErrInvalidState, "store", "set complaint status",
			fmt.Sprintf("cannot move complaint %s from %s to %s", localID, complaint.SyncStatus, status), nil)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		UPDATE complaints
		SET sync_status = ?, server_id = COALESCE(?, server_id), error_message = ?, updated_at = ?
		WHERE local_id = ?`,
		string(status), nullableString(serverID), nullableString(errorMessage), now, localID)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "set complaint status", localID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (*Complaint, error) {
	var (
		complaint    Complaint
		investigator sql.NullString
		beneficiary  sql.NullString
		incidentType sql.NullString
		incidentDate sql.NullString
		location     sql.NullString
		latitude     sql.NullFloat64
		longitude    sql.NullFloat64
		servicesJSON sql.NullString
		comment      sql.NullString
		status       string
		serverID     sql.NullString
		errorMessage sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(
		&complaint.ID,
		&complaint.LocalID,
		&investigator,
		&beneficiary,
		&incidentType,
		&incidentDate,
		&location,
		&complaint.Description,
		&latitude,
		&longitude,
		&servicesJSON,
		&comment,
		&status,
		&serverID,
		&errorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	complaint.Investigator = investigator.String
	complaint.Beneficiary = beneficiary.String
	complaint.IncidentType = incidentType.String
	complaint.IncidentDate = incidentDate.String
	complaint.Location = location.String
	if latitude.Valid {
		value := latitude.Float64
		complaint.Latitude = &value
	}
	if longitude.Valid {
		value := longitude.Float64
		complaint.Longitude = &value
	}
	complaint.ServicesJSON = servicesJSON.String
	complaint.Comment = comment.String
	complaint.SyncStatus = SyncStatus(status)
	complaint.ServerID = serverID.String
	complaint.ErrorMessage = errorMessage.String

	var err error
	if complaint.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if complaint.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &complaint, nil
}
