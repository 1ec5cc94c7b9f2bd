package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fieldkit/internal/logging"
	"fieldkit/internal/testsupport"
)

func TestMonitorDetectsOnlineAndOffline(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemote(server.URL))
	monitor := NewMonitor(cfg, logging.NewNop())

	ctx := context.Background()
	monitor.probe(ctx)
	if !monitor.Online() {
		t.Fatal("expected online after successful probe")
	}

	healthy.Store(false)
	monitor.probe(ctx)
	if monitor.Online() {
		t.Fatal("expected offline after failing probe")
	}
}

func TestMonitorEmitsTransitionEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemote(server.URL))
	monitor := NewMonitor(cfg, logging.NewNop())

	ctx := context.Background()
	monitor.probe(ctx)

	select {
	case event := <-monitor.Events():
		if event.State != StateOnline {
			t.Fatalf("expected online event, got %s", event.State)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a transition event")
	}

	// A repeated identical observation emits nothing.
	monitor.probe(ctx)
	select {
	case event := <-monitor.Events():
		t.Fatalf("unexpected event %+v", event)
	default:
	}
}

func TestMonitorWithoutRemoteStaysOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	monitor := NewMonitor(cfg, logging.NewNop())

	monitor.probe(context.Background())
	if monitor.Online() {
		t.Fatal("expected offline with no remote configured")
	}
	if monitor.State() != StateOffline {
		t.Fatalf("expected offline state, got %s", monitor.State())
	}
}

func TestMonitorStartStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemote(server.URL))
	monitor := NewMonitor(cfg, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor.Start(ctx)
	defer monitor.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !monitor.Online() {
		time.Sleep(10 * time.Millisecond)
	}
	if !monitor.Online() {
		t.Fatal("expected monitor to come online")
	}
	monitor.Stop()
}
