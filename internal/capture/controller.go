package capture

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"fieldkit/internal/logging"
	"fieldkit/internal/services"
)

// Options configures one capture session.
type Options struct {
	// MaxDurationSeconds bounds the recording. Zero uses the controller
	// default.
	MaxDurationSeconds int
	// AudioOnly records the microphone without video.
	AudioOnly bool
	// VideoOnly records the camera without an audio track.
	VideoOnly bool
}

// Session is a point-in-time snapshot of the active capture state.
type Session struct {
	Recording          bool
	Paused             bool
	ElapsedSeconds     int
	MaxDurationSeconds int
	// OutputPath holds the finished recording once the session stops.
	OutputPath string
	Err        error
}

// tickerFactory lets tests drive the duration timer deterministically.
type tickerFactory func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(d)
	return ticker.C, ticker.Stop
}

// Controller manages the lifecycle of capture sessions against a single
// recording device pair.
type Controller struct {
	recorder   Recorder
	logger     *slog.Logger
	defaultMax int
	newTicker  tickerFactory

	mu       sync.Mutex
	session  Session
	stopping bool
	done     chan struct{}
}

// NewController builds a Controller around the given recorder.
func NewController(recorder Recorder, defaultMaxSeconds int, logger *slog.Logger) *Controller {
	if defaultMaxSeconds <= 0 {
		defaultMaxSeconds = 35
	}
	return &Controller{
		recorder:   recorder,
		logger:     logging.NewComponentLogger(logger, "capture"),
		defaultMax: defaultMaxSeconds,
		newTicker:  realTicker,
	}
}

// Start begins a new recording session. It fails when a session is already
// active or when the device cannot be acquired.
func (c *Controller) Start(ctx context.Context, opts Options) error {
	if opts.AudioOnly && opts.VideoOnly {
		return services.Wrap(services.ErrValidation, "capture", "start",
			"audio-only and video-only are mutually exclusive", nil)
	}
	maxDuration := opts.MaxDurationSeconds
	if maxDuration <= 0 {
		maxDuration = c.defaultMax
	}

	c.mu.Lock()
	if c.session.Recording {
		c.mu.Unlock()
		return services.Wrap(services.ErrInvalidState, "capture", "start",
			"a capture session is already active", nil)
	}
	c.session = Session{
		Recording:          true,
		MaxDurationSeconds: maxDuration,
	}
	c.stopping = false
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	if err := c.recorder.Start(ctx, RecordOptions{
		AudioOnly:          opts.AudioOnly,
		VideoOnly:          opts.VideoOnly,
		MaxDurationSeconds: maxDuration,
	}); err != nil {
		c.mu.Lock()
		c.session = Session{Err: err}
		close(done)
		c.mu.Unlock()
		return err
	}

	c.logger.Info("capture started",
		logging.Int("max_duration_seconds", maxDuration),
		logging.Bool("audio_only", opts.AudioOnly),
		logging.Bool("video_only", opts.VideoOnly))

	ticks, cancel := c.newTicker(time.Second)
	go c.runTimer(ticks, cancel, done)
	return nil
}

// runTimer advances elapsed time once per second and fires the automatic
// stop on the tick that reaches the maximum duration.
func (c *Controller) runTimer(ticks <-chan time.Time, cancel func(), done chan struct{}) {
	defer cancel()
	for {
		select {
		case <-done:
			return
		case <-ticks:
			if c.advanceTick() {
				if _, err := c.Stop(); err != nil {
					c.logger.Warn("automatic stop failed", logging.Error(err))
				}
				return
			}
		}
	}
}

// advanceTick increments elapsed time and reports whether the session just
// crossed its maximum duration.
func (c *Controller) advanceTick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Recording || c.session.Paused || c.stopping {
		return false
	}
	c.session.ElapsedSeconds++
	return c.session.ElapsedSeconds >= c.session.MaxDurationSeconds
}

// Pause suspends an active recording. It fails outside the recording state.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if !c.session.Recording || c.session.Paused {
		c.mu.Unlock()
		return services.Wrap(services.ErrInvalidState, "capture", "pause",
			"no active recording to pause", nil)
	}
	c.session.Paused = true
	c.mu.Unlock()

	if err := c.recorder.Pause(); err != nil {
		c.mu.Lock()
		c.session.Paused = false
		c.mu.Unlock()
		return err
	}
	c.logger.Info("capture paused")
	return nil
}

// Resume continues a paused recording. It fails outside the paused state.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if !c.session.Recording || !c.session.Paused {
		c.mu.Unlock()
		return services.Wrap(services.ErrInvalidState, "capture", "resume",
			"no paused recording to resume", nil)
	}
	c.mu.Unlock()

	if err := c.recorder.Resume(); err != nil {
		return err
	}
	c.mu.Lock()
	c.session.Paused = false
	c.mu.Unlock()
	c.logger.Info("capture resumed")
	return nil
}

// Stop finalizes the recording and returns the finished file path. The
// device is released only after the recorder has assembled its output, so
// buffered trailing data is never lost. Stop is safe to call concurrently
// with the automatic duration stop; only one finalization runs.
func (c *Controller) Stop() (string, error) {
	c.mu.Lock()
	if !c.session.Recording {
		c.mu.Unlock()
		return "", services.Wrap(services.ErrInvalidState, "capture", "stop",
			"no active recording to stop", nil)
	}
	if c.stopping {
		c.mu.Unlock()
		return "", services.Wrap(services.ErrInvalidState, "capture", "stop",
			"stop already in progress", nil)
	}
	c.stopping = true
	done := c.done
	elapsed := c.session.ElapsedSeconds
	c.mu.Unlock()

	outputPath, err := c.recorder.Stop()

	c.mu.Lock()
	close(done)
	c.session.Recording = false
	c.session.Paused = false
	c.session.OutputPath = outputPath
	c.session.Err = err
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("capture stop failed", logging.Error(err))
		return "", err
	}
	c.logger.Info("capture finished",
		logging.Int("elapsed_seconds", elapsed),
		logging.String("output", outputPath))
	return outputPath, nil
}

// Reset aborts any active session and clears all session state. Partial
// recordings are discarded. Reset is safe in every state.
func (c *Controller) Reset() {
	c.mu.Lock()
	active := c.session.Recording && !c.stopping
	done := c.done
	if active {
		c.stopping = true
	}
	c.mu.Unlock()

	if active {
		if err := c.recorder.Abort(); err != nil {
			c.logger.Warn("abort during reset failed", logging.Error(err))
		}
		c.mu.Lock()
		close(done)
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.session = Session{}
	c.stopping = false
	c.mu.Unlock()
	c.logger.Debug("capture state reset")
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}
