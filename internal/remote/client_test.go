package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"fieldkit/internal/services"
	"fieldkit/internal/testsupport"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithRemote(serverURL))
	cfg.Remote.APIToken = "token-123"
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("remote.New: %v", err)
	}
	return client
}

func TestSubmitComplaintReturnsServerID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/complaints" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var payload ComplaintPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Description != "incident details" {
			t.Errorf("unexpected description %q", payload.Description)
		}
		_ = json.NewEncoder(w).Encode(ComplaintResponse{ID: "srv-42"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	id, err := client.SubmitComplaint(context.Background(), ComplaintPayload{
		LocalID:     "local-1",
		Description: "incident details",
	})
	if err != nil {
		t.Fatalf("SubmitComplaint: %v", err)
	}
	if id != "srv-42" {
		t.Fatalf("unexpected server id %q", id)
	}
}

func TestSubmitComplaintSurfacesServerReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"reason": "description too long"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SubmitComplaint(context.Background(), ComplaintPayload{Description: "x"})
	if !errors.Is(err, services.ErrSync) {
		t.Fatalf("expected sync error, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError in chain, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Reason != "description too long" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestRequestUploadAndUpload(t *testing.T) {
	var uploaded []byte
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/api/uploads", func(w http.ResponseWriter, r *http.Request) {
		var request UploadRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode upload request: %v", err)
		}
		if request.FileName != "clip.mp4" || request.FileType != "video/mp4" {
			t.Errorf("unexpected upload request %+v", request)
		}
		_ = json.NewEncoder(w).Encode(UploadTarget{URL: server.URL + "/bucket/clip.mp4"})
	})
	mux.HandleFunc("/bucket/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "video/mp4" {
			t.Errorf("unexpected content type %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		uploaded = body
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, server.URL)
	target, err := client.RequestUpload(context.Background(), UploadRequest{
		FileName: "clip.mp4",
		FileType: "video/mp4",
	})
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, path, 256)
	if err := client.Upload(context.Background(), target, path, "video/mp4"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(uploaded) != 256 {
		t.Fatalf("expected 256 bytes uploaded, got %d", len(uploaded))
	}
}

func TestUploadRejectedByTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	path := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, path, 16)

	err := client.Upload(context.Background(), UploadTarget{URL: server.URL + "/expired"}, path, "video/mp4")
	if !errors.Is(err, services.ErrSync) {
		t.Fatalf("expected sync error, got %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := New(cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
