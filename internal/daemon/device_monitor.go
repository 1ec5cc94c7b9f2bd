package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"fieldkit/internal/config"
	"fieldkit/internal/logging"
)

// deviceMonitor listens for udev netlink events so the daemon can report when
// capture hardware appears or disappears. Field laptops frequently have their
// webcam or headset unplugged mid-shift; surfacing that in the log beats a
// cryptic ffmpeg failure at recording time.
type deviceMonitor struct {
	cfg    *config.Config
	logger *slog.Logger

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// newDeviceMonitor creates a monitor that watches video4linux and sound
// subsystem hotplug events.
func newDeviceMonitor(cfg *config.Config, logger *slog.Logger) *deviceMonitor {
	if cfg == nil {
		return nil
	}

	return &deviceMonitor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "device-monitor"),
	}
}

// Start begins listening for udev netlink events.
func (m *deviceMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; capture device hotplug events will not be reported",
			logging.Error(err),
			logging.String(logging.FieldEventType, "device_monitor_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "device availability changes go unnoticed until the next capture attempt"),
		)
		return nil // Non-fatal - capture still works when the devices are present
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	// Pass quit channel to goroutine to avoid reading m.quit without lock
	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("device monitor started",
		logging.String(logging.FieldEventType, "device_monitor_started"),
		logging.String("video_device", m.cfg.Capture.VideoDevice),
		logging.String("audio_device", m.cfg.Capture.AudioDevice),
	)

	return nil
}

// Stop shuts down the device monitor.
func (m *deviceMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}

	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}

	m.running = false

	m.logger.Info("device monitor stopped",
		logging.String(logging.FieldEventType, "device_monitor_stopped"),
	)
}

// Running reports whether the device monitor is active.
func (m *deviceMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// monitorLoop reads netlink events and logs capture device changes.
func (m *deviceMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	matcher := m.buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("device monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "device_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "device hotplug reporting may be affected"),
			)
		}
	}
}

// buildMatcher creates a matcher for capture device hotplug events.
// Matches: SUBSYSTEM=video4linux|sound, ACTION=add|remove
func (m *deviceMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "sound",
		},
	})
	return rules
}

// handleEvent logs a matched uevent, flagging the configured capture devices.
func (m *deviceMonitor) handleEvent(uevent netlink.UEvent) {
	devname := m.extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}

	configured := devname == m.cfg.Capture.VideoDevice || devname == m.cfg.Capture.AudioDevice

	switch string(uevent.Action) {
	case "add":
		m.logger.Info("capture device connected",
			logging.String(logging.FieldEventType, "device_connected"),
			logging.String("device", devname),
			logging.Bool("configured", configured),
		)
	case "remove":
		if configured {
			m.logger.Warn("configured capture device disconnected",
				logging.String(logging.FieldEventType, "device_disconnected"),
				logging.String("device", devname),
				logging.String(logging.FieldErrorHint, "reconnect the device before starting a recording"),
				logging.String(logging.FieldImpact, "capture will fail until the device returns"),
			)
		} else {
			m.logger.Info("capture device disconnected",
				logging.String(logging.FieldEventType, "device_disconnected"),
				logging.String("device", devname),
			)
		}
	default:
		m.logger.Debug("ignoring device event",
			logging.String("action", string(uevent.Action)),
			logging.String("device", devname),
		)
	}
}

// extractDeviceName gets the device path from a uevent.
func (m *deviceMonitor) extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/dev/") {
			return "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}

	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
