package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Fieldkit.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Fieldkit.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Fieldkit.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReportSubmit records a new complaint.
func (c *Client) ReportSubmit(req ReportSubmitRequest) (*ReportSubmitResponse, error) {
	var resp ReportSubmitResponse
	if err := c.client.Call("Fieldkit.ReportSubmit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReportList returns complaints optionally filtered by sync statuses.
func (c *Client) ReportList(statuses []string) (*ReportListResponse, error) {
	var resp ReportListResponse
	req := ReportListRequest{Statuses: statuses}
	if err := c.client.Call("Fieldkit.ReportList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MediaAttach compresses and attaches a file to a complaint.
func (c *Client) MediaAttach(complaintLocalID, sourcePath string) (*MediaAttachResponse, error) {
	var resp MediaAttachResponse
	req := MediaAttachRequest{ComplaintLocalID: complaintLocalID, SourcePath: sourcePath}
	if err := c.client.Call("Fieldkit.MediaAttach", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MediaList returns attachments for a complaint, or all when the id is empty.
func (c *Client) MediaList(complaintLocalID string) (*MediaListResponse, error) {
	var resp MediaListResponse
	req := MediaListRequest{ComplaintLocalID: complaintLocalID}
	if err := c.client.Call("Fieldkit.MediaList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CaptureStart begins a recording attached to a complaint.
func (c *Client) CaptureStart(req CaptureStartRequest) (*CaptureStartResponse, error) {
	var resp CaptureStartResponse
	if err := c.client.Call("Fieldkit.CaptureStart", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CapturePause suspends the active recording.
func (c *Client) CapturePause() (*CapturePauseResponse, error) {
	var resp CapturePauseResponse
	if err := c.client.Call("Fieldkit.CapturePause", CapturePauseRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CaptureResume continues a paused recording.
func (c *Client) CaptureResume() (*CaptureResumeResponse, error) {
	var resp CaptureResumeResponse
	if err := c.client.Call("Fieldkit.CaptureResume", CaptureResumeRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CaptureStop finalizes the active recording and returns the attached media.
func (c *Client) CaptureStop() (*CaptureStopResponse, error) {
	var resp CaptureStopResponse
	if err := c.client.Call("Fieldkit.CaptureStop", CaptureStopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CaptureReset discards any active recording.
func (c *Client) CaptureReset() (*CaptureResetResponse, error) {
	var resp CaptureResetResponse
	if err := c.client.Call("Fieldkit.CaptureReset", CaptureResetRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncTrigger requests an immediate sync pass.
func (c *Client) SyncTrigger() (*SyncTriggerResponse, error) {
	var resp SyncTriggerResponse
	if err := c.client.Call("Fieldkit.SyncTrigger", SyncTriggerRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns queue entries optionally filtered by statuses.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	var resp QueueListResponse
	req := QueueListRequest{Statuses: statuses}
	if err := c.client.Call("Fieldkit.QueueList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRetry resets errored records for another sync attempt.
func (c *Client) QueueRetry() (*QueueRetryResponse, error) {
	var resp QueueRetryResponse
	if err := c.client.Call("Fieldkit.QueueRetry", QueueRetryRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueuePurge removes fully delivered records and their local files.
func (c *Client) QueuePurge() (*QueuePurgeResponse, error) {
	var resp QueuePurgeResponse
	if err := c.client.Call("Fieldkit.QueuePurge", QueuePurgeRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueReset returns interrupted records to pending.
func (c *Client) QueueReset() (*QueueResetResponse, error) {
	var resp QueueResetResponse
	if err := c.client.Call("Fieldkit.QueueReset", QueueResetRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns aggregate record diagnostics.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.client.Call("Fieldkit.Health", HealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Fieldkit.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Fieldkit.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
