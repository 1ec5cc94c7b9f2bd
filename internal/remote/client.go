// Package remote implements the HTTP client for the complaint ingestion
// service: complaint submission, pre-authorized media uploads, and the
// reachability probe.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"fieldkit/internal/config"
	"fieldkit/internal/services"
)

// APIError reports a non-2xx response with the server's machine-readable
// reason when one was provided.
type APIError struct {
	StatusCode int
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// Client talks to the remote ingestion API.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// New builds a Client from configuration. It fails when no remote endpoint
// is configured, since callers that tolerate offline operation should check
// the configuration first.
func New(cfg *config.Config) (*Client, error) {
	if cfg.Remote.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "remote", "create client",
			"no remote base URL configured", nil)
	}
	timeout := time.Duration(cfg.Remote.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.Remote.BaseURL, "/"),
		apiToken:   cfg.Remote.APIToken,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SubmitComplaint posts a complaint payload and returns the server-assigned
// identifier.
func (c *Client) SubmitComplaint(ctx context.Context, payload ComplaintPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrSync, "remote", "submit complaint", "encode payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/complaints", bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrSync, "remote", "submit complaint", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrSync, "remote", "submit complaint", "", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return "", services.Wrap(services.ErrSync, "remote", "submit complaint", "", err)
	}

	var decoded ComplaintResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", services.Wrap(services.ErrSync, "remote", "submit complaint", "decode response", err)
	}
	if decoded.ID == "" {
		return "", services.Wrap(services.ErrSync, "remote", "submit complaint",
			"server response missing identifier", nil)
	}
	return decoded.ID, nil
}

// RequestUpload asks the server for a time-limited upload URL for one media
// file.
func (c *Client) RequestUpload(ctx context.Context, request UploadRequest) (UploadTarget, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return UploadTarget{}, services.Wrap(services.ErrSync, "remote", "request upload", "encode payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads", bytes.NewReader(body))
	if err != nil {
		return UploadTarget{}, services.Wrap(services.ErrSync, "remote", "request upload", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadTarget{}, services.Wrap(services.ErrSync, "remote", "request upload", "", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return UploadTarget{}, services.Wrap(services.ErrSync, "remote", "request upload", "", err)
	}

	var target UploadTarget
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		return UploadTarget{}, services.Wrap(services.ErrSync, "remote", "request upload", "decode response", err)
	}
	if target.URL == "" {
		return UploadTarget{}, services.Wrap(services.ErrSync, "remote", "request upload",
			"server response missing upload URL", nil)
	}
	return target, nil
}

// Upload PUTs a local file to a pre-authorized upload target.
func (c *Client) Upload(ctx context.Context, target UploadTarget, path, contentType string) error {
	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrStorage, "remote", "upload media", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return services.Wrap(services.ErrStorage, "remote", "upload media", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.URL, file)
	if err != nil {
		return services.Wrap(services.ErrSync, "remote", "upload media", "build request", err)
	}
	req.ContentLength = info.Size()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrSync, "remote", "upload media", "", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return services.Wrap(services.ErrSync, "remote", "upload media", "", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(payload) > 0 {
		var decoded struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(payload, &decoded) == nil {
			switch {
			case decoded.Reason != "":
				apiErr.Reason = decoded.Reason
			case decoded.Message != "":
				apiErr.Reason = decoded.Message
			case decoded.Error != "":
				apiErr.Reason = decoded.Error
			}
		}
		if apiErr.Reason == "" {
			apiErr.Reason = strings.TrimSpace(string(payload))
		}
	}
	return apiErr
}
