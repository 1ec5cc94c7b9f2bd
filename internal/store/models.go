package store

import (
	"strings"
	"time"
)

// SyncStatus represents the delivery lifecycle of a durable record.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

var allSyncStatuses = []SyncStatus{SyncPending, SyncSyncing, SyncSynced, SyncError}

var syncStatusSet = func() map[SyncStatus]struct{} {
	set := make(map[SyncStatus]struct{}, len(allSyncStatuses))
	for _, status := range allSyncStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// syncTransitions captures the only legal record status moves. Synced is
// terminal; error records stay eligible for another syncing attempt.
var syncTransitions = map[SyncStatus][]SyncStatus{
	SyncPending: {SyncSyncing},
	SyncSyncing: {SyncSynced, SyncError, SyncPending},
	SyncError:   {SyncSyncing},
	SyncSynced:  {},
}

// CanTransition reports whether moving a record from one sync status to
// another is legal.
func CanTransition(from, to SyncStatus) bool {
	for _, allowed := range syncTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllSyncStatuses returns the ordered list of known record statuses.
func AllSyncStatuses() []SyncStatus {
	cp := make([]SyncStatus, len(allSyncStatuses))
	copy(cp, allSyncStatuses)
	return cp
}

// ParseSyncStatus converts a string into a known SyncStatus.
func ParseSyncStatus(value string) (SyncStatus, bool) {
	normalized := SyncStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := syncStatusSet[normalized]
	return normalized, ok
}

// EntryStatus represents the lifecycle of a sync queue entry.
type EntryStatus string

const (
	EntryPending    EntryStatus = "pending"
	EntryProcessing EntryStatus = "processing"
	EntryCompleted  EntryStatus = "completed"
	EntryFailed     EntryStatus = "failed"
)

var entryStatusSet = map[EntryStatus]struct{}{
	EntryPending:    {},
	EntryProcessing: {},
	EntryCompleted:  {},
	EntryFailed:     {},
}

// ParseEntryStatus converts a string into a known EntryStatus.
func ParseEntryStatus(value string) (EntryStatus, bool) {
	normalized := EntryStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := entryStatusSet[normalized]
	return normalized, ok
}

// RecordKind identifies which table a sync queue entry references.
type RecordKind string

const (
	KindComplaint RecordKind = "complaint"
	KindMedia     RecordKind = "media"
)

// Complaint is an incident report persisted locally until the server
// acknowledges it.
type Complaint struct {
	ID           int64
	LocalID      string
	Investigator string
	Beneficiary  string
	IncidentType string
	IncidentDate string
	Location     string
	Description  string
	Latitude     *float64
	Longitude    *float64
	ServicesJSON string
	Comment      string
	SyncStatus   SyncStatus
	ServerID     string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Media is a binary attachment keyed to a complaint. Its sync lifecycle is
// independent of the parent record.
type Media struct {
	ID               int64
	LocalID          string
	ComplaintLocalID string
	FileName         string
	MIMEType         string
	Kind             string
	SizeBytes        int64
	Path             string
	SyncStatus       SyncStatus
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// QueueEntry is one unit of sync work referencing a complaint or media record.
type QueueEntry struct {
	ID            int64
	RecordKind    RecordKind
	RecordLocalID string
	Status        EntryStatus
	Attempts      int
	NextAttemptAt *time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HealthSummary describes aggregated record counts per lifecycle state.
type HealthSummary struct {
	Complaints int
	Media      int
	Pending    int
	Syncing    int
	Synced     int
	Errored    int
}

// PendingWork counts records that have not been acknowledged by the server.
func (h HealthSummary) PendingWork() int {
	return h.Pending + h.Syncing + h.Errored
}
