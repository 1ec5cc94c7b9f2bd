// Package connectivity tracks whether the remote submission endpoint is
// reachable and announces online/offline transitions.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"fieldkit/internal/config"
	"fieldkit/internal/logging"
)

// State describes reachability of the remote endpoint.
type State string

const (
	StateUnknown State = "unknown"
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// Event is emitted whenever the observed state changes.
type Event struct {
	State State
	At    time.Time
}

// Monitor probes the remote endpoint periodically and publishes state
// transitions. A nil or empty probe URL keeps the monitor permanently
// offline, which is valid for fully disconnected deployments.
type Monitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewMonitor builds a Monitor from the sync configuration.
func NewMonitor(cfg *config.Config, logger *slog.Logger) *Monitor {
	probeURL := ""
	if cfg.Remote.BaseURL != "" {
		probeURL = cfg.Remote.BaseURL + cfg.Remote.ProbePath
	}
	return &Monitor{
		probeURL: probeURL,
		interval: time.Duration(cfg.Sync.ProbeInterval) * time.Second,
		client: &http.Client{
			Timeout: time.Duration(cfg.Sync.ProbeTimeout) * time.Second,
		},
		logger: logging.NewComponentLogger(logger, "connectivity"),
		state:  StateUnknown,
		events: make(chan Event, 8),
	}
}

// Start begins periodic probing. The first probe runs immediately so the
// daemon knows its state at startup.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return
	}
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.probe(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

// Stop halts probing. Pending events remain readable.
func (m *Monitor) Stop() {
	m.mu.Lock()
	done := m.done
	m.done = nil
	m.mu.Unlock()
	if done != nil {
		close(done)
		m.wg.Wait()
	}
}

// Events returns the transition channel. Slow consumers lose old events
// rather than blocking the prober.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Online reports the last observed state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateOnline
}

// State returns the last observed state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) probe(ctx context.Context) {
	next := StateOffline
	if m.probeURL != "" && m.probeReachable(ctx) {
		next = StateOnline
	}
	m.setState(next)
}

func (m *Monitor) probeReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

func (m *Monitor) setState(next State) {
	m.mu.Lock()
	previous := m.state
	if previous == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	m.mu.Unlock()

	m.logger.Info("connectivity changed",
		logging.String("from", string(previous)),
		logging.String("to", string(next)))

	event := Event{State: next, At: time.Now().UTC()}
	select {
	case m.events <- event:
	default:
		// Drop the oldest event to keep the newest state visible.
		select {
		case <-m.events:
		default:
		}
		select {
		case m.events <- event:
		default:
		}
	}
}
