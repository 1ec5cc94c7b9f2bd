package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fieldkit/internal/config"
)

const userAgent = "Fieldkit-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyCaptureCompleted(ctx context.Context, fileName string, durationSeconds int) error
	NotifySyncPassCompleted(ctx context.Context, synced, failed, pending int) error
	NotifySyncError(ctx context.Context, recordKind, localID string, cause error) error
	NotifyStorageError(ctx context.Context, cause error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		syncEnabled:   cfg.Notifications.Sync,
		captureOn:     cfg.Notifications.Capture,
		errorsEnabled: cfg.Notifications.Errors,
	}
}

// NewNoop returns a Service that discards every notification.
func NewNoop() Service {
	return noopService{}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	syncEnabled   bool
	captureOn     bool
	errorsEnabled bool
}

func (n *ntfyService) NotifyCaptureCompleted(ctx context.Context, fileName string, durationSeconds int) error {
	if !n.captureOn {
		return nil
	}
	data := payload{
		title:   "Fieldkit - Capture Complete",
		message: fmt.Sprintf("Recorded %s (%ds)", strings.TrimSpace(fileName), durationSeconds),
		tags:    []string{"fieldkit", "capture", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncPassCompleted(ctx context.Context, synced, failed, pending int) error {
	if !n.syncEnabled {
		return nil
	}
	var title, message string
	if failed == 0 {
		title = "Fieldkit - Sync Complete"
		message = fmt.Sprintf("Sync pass complete: %d records delivered, %d still pending", synced, pending)
	} else {
		title = "Fieldkit - Sync Complete (with errors)"
		message = fmt.Sprintf("Sync pass complete: %d delivered, %d failed, %d still pending", synced, failed, pending)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"fieldkit", "sync", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncError(ctx context.Context, recordKind, localID string, cause error) error {
	if !n.errorsEnabled {
		return nil
	}
	causeText := "unknown"
	if cause != nil {
		causeText = strings.TrimSpace(cause.Error())
	}
	data := payload{
		title:    "Fieldkit - Sync Error",
		message:  fmt.Sprintf("Failed to deliver %s %s: %s", recordKind, localID, causeText),
		tags:     []string{"fieldkit", "sync", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStorageError(ctx context.Context, cause error) error {
	if !n.errorsEnabled {
		return nil
	}
	causeText := "unknown"
	if cause != nil {
		causeText = strings.TrimSpace(cause.Error())
	}
	data := payload{
		title:    "Fieldkit - Storage Error",
		message:  fmt.Sprintf("Local storage failure, evidence may not be durable: %s", causeText),
		tags:     []string{"fieldkit", "storage", "alert"},
		priority: "urgent",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Fieldkit - Test",
		message:  "Notification system test",
		tags:     []string{"fieldkit", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyCaptureCompleted(context.Context, string, int) error      { return nil }
func (noopService) NotifySyncPassCompleted(context.Context, int, int, int) error   { return nil }
func (noopService) NotifySyncError(context.Context, string, string, error) error   { return nil }
func (noopService) NotifyStorageError(context.Context, error) error                { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
