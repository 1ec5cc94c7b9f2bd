package ipc

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// HealthCounts mirrors the store record aggregates for wire transport.
type HealthCounts struct {
	Complaints int `json:"complaints"`
	Media      int `json:"media"`
	Pending    int `json:"pending"`
	Syncing    int `json:"syncing"`
	Synced     int `json:"synced"`
	Errored    int `json:"errored"`
}

// SyncSummary reports the outcome of the most recent sync pass.
type SyncSummary struct {
	LastPassAt string `json:"last_pass_at"`
	Synced     int    `json:"synced"`
	Failed     int    `json:"failed"`
	Pending    int    `json:"pending"`
	InFlight   bool   `json:"in_flight"`
}

// CaptureStatus is a snapshot of the recording session.
type CaptureStatus struct {
	Recording          bool   `json:"recording"`
	Paused             bool   `json:"paused"`
	ElapsedSeconds     int    `json:"elapsed_seconds"`
	MaxDurationSeconds int    `json:"max_duration_seconds"`
	OutputPath         string `json:"output_path"`
}

// StatusResponse represents combined daemon status information.
type StatusResponse struct {
	Running       bool          `json:"running"`
	Online        bool          `json:"online"`
	PID           int           `json:"pid"`
	LockPath      string        `json:"lock_path"`
	StoreDBPath   string        `json:"store_db_path"`
	Health        HealthCounts  `json:"health"`
	Sync          SyncSummary   `json:"sync"`
	Capture       CaptureStatus `json:"capture"`
	DeviceMonitor bool          `json:"device_monitor"`
}

// Complaint is the wire representation of a stored complaint.
type Complaint struct {
	LocalID      string   `json:"local_id"`
	Investigator string   `json:"investigator"`
	Beneficiary  string   `json:"beneficiary"`
	IncidentType string   `json:"incident_type"`
	IncidentDate string   `json:"incident_date"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Services     string   `json:"services"`
	Comment      string   `json:"comment"`
	SyncStatus   string   `json:"sync_status"`
	ServerID     string   `json:"server_id"`
	ErrorMessage string   `json:"error_message"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// Media is the wire representation of a stored attachment.
type Media struct {
	LocalID          string `json:"local_id"`
	ComplaintLocalID string `json:"complaint_local_id"`
	FileName         string `json:"file_name"`
	MIMEType         string `json:"mime_type"`
	Kind             string `json:"kind"`
	SizeBytes        int64  `json:"size_bytes"`
	Path             string `json:"path"`
	SyncStatus       string `json:"sync_status"`
	ErrorMessage     string `json:"error_message"`
	CreatedAt        string `json:"created_at"`
}

// QueueEntry is the wire representation of a sync queue entry.
type QueueEntry struct {
	ID            int64  `json:"id"`
	RecordKind    string `json:"record_kind"`
	RecordLocalID string `json:"record_local_id"`
	Status        string `json:"status"`
	Attempts      int    `json:"attempts"`
	NextAttemptAt string `json:"next_attempt_at"`
	LastError     string `json:"last_error"`
	CreatedAt     string `json:"created_at"`
}

// ReportSubmitRequest records a new complaint.
type ReportSubmitRequest struct {
	Investigator string   `json:"investigator"`
	Beneficiary  string   `json:"beneficiary"`
	IncidentType string   `json:"incident_type"`
	IncidentDate string   `json:"incident_date"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Services     []string `json:"services"`
	Comment      string   `json:"comment"`
}

// ReportSubmitResponse returns the stored complaint.
type ReportSubmitResponse struct {
	Complaint Complaint `json:"complaint"`
}

// ReportListRequest filters complaint listing by sync status.
type ReportListRequest struct {
	Statuses []string `json:"statuses"`
}

// ReportListResponse contains stored complaints, newest first.
type ReportListResponse struct {
	Complaints []Complaint `json:"complaints"`
}

// MediaAttachRequest attaches a file to a complaint.
type MediaAttachRequest struct {
	ComplaintLocalID string `json:"complaint_local_id"`
	SourcePath       string `json:"source_path"`
}

// MediaAttachResponse returns the stored media record.
type MediaAttachResponse struct {
	Media Media `json:"media"`
}

// MediaListRequest lists attachments. An empty complaint id lists all media.
type MediaListRequest struct {
	ComplaintLocalID string `json:"complaint_local_id"`
}

// MediaListResponse contains stored media records, oldest first.
type MediaListResponse struct {
	Media []Media `json:"media"`
}

// CaptureStartRequest begins a recording attached to a complaint.
type CaptureStartRequest struct {
	ComplaintLocalID   string `json:"complaint_local_id"`
	MaxDurationSeconds int    `json:"max_duration_seconds"`
	AudioOnly          bool   `json:"audio_only"`
	VideoOnly          bool   `json:"video_only"`
}

// CaptureStartResponse acknowledges a started recording.
type CaptureStartResponse struct {
	Started bool `json:"started"`
}

// CapturePauseRequest suspends the active recording.
type CapturePauseRequest struct{}

// CapturePauseResponse acknowledges a pause.
type CapturePauseResponse struct {
	Paused bool `json:"paused"`
}

// CaptureResumeRequest resumes a paused recording.
type CaptureResumeRequest struct{}

// CaptureResumeResponse acknowledges a resume.
type CaptureResumeResponse struct {
	Resumed bool `json:"resumed"`
}

// CaptureStopRequest finalizes the active recording.
type CaptureStopRequest struct{}

// CaptureStopResponse returns the attached media record.
type CaptureStopResponse struct {
	Media          Media `json:"media"`
	ElapsedSeconds int   `json:"elapsed_seconds"`
}

// CaptureResetRequest discards any active recording.
type CaptureResetRequest struct{}

// CaptureResetResponse acknowledges a reset.
type CaptureResetResponse struct {
	Reset bool `json:"reset"`
}

// SyncTriggerRequest requests an immediate sync pass.
type SyncTriggerRequest struct{}

// SyncTriggerResponse acknowledges the trigger.
type SyncTriggerResponse struct {
	Triggered bool `json:"triggered"`
}

// QueueListRequest filters queue listing by entry status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Entries []QueueEntry `json:"entries"`
}

// QueueRetryRequest resets errored records for another sync attempt.
type QueueRetryRequest struct{}

// QueueRetryResponse reports the number of reset records.
type QueueRetryResponse struct {
	Updated int `json:"updated"`
}

// QueuePurgeRequest removes fully delivered records and their local files.
type QueuePurgeRequest struct{}

// QueuePurgeResponse reports the number of purged complaints.
type QueuePurgeResponse struct {
	Removed int `json:"removed"`
}

// QueueResetRequest returns interrupted records to pending.
type QueueResetRequest struct{}

// QueueResetResponse reports the number of records reset.
type QueueResetResponse struct {
	Updated int `json:"updated"`
}

// HealthRequest fetches aggregate record diagnostics.
type HealthRequest struct{}

// HealthResponse reports record counts per lifecycle state.
type HealthResponse struct {
	Health HealthCounts `json:"health"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
