package remote

// ComplaintPayload mirrors the locally stored complaint minus local-only
// bookkeeping fields.
type ComplaintPayload struct {
	LocalID      string   `json:"localId"`
	Investigator string   `json:"investigator,omitempty"`
	Beneficiary  string   `json:"beneficiary,omitempty"`
	IncidentType string   `json:"incidentType,omitempty"`
	IncidentDate string   `json:"incidentDate,omitempty"`
	Location     string   `json:"location,omitempty"`
	Description  string   `json:"description"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Services     []string `json:"services,omitempty"`
	Comment      string   `json:"comment,omitempty"`
	CreatedAt    string   `json:"createdAt"`
}

// ComplaintResponse carries the server-assigned identifier for an accepted
// complaint.
type ComplaintResponse struct {
	ID string `json:"id"`
}

// UploadRequest asks for a pre-authorized upload slot.
type UploadRequest struct {
	FileName         string `json:"fileName"`
	FileType         string `json:"fileType"`
	ComplaintID      string `json:"complaintId,omitempty"`
	ComplaintLocalID string `json:"complaintLocalId,omitempty"`
}

// UploadTarget is a time-limited destination for one binary upload.
type UploadTarget struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}
