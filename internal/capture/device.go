package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"fieldkit/internal/config"
	"fieldkit/internal/services"
)

// RecordOptions tells a Recorder what to capture.
type RecordOptions struct {
	AudioOnly          bool
	VideoOnly          bool
	MaxDurationSeconds int
}

// Recorder drives the actual recording hardware. Implementations hold the
// device exclusively between Start and Stop/Abort.
type Recorder interface {
	Start(ctx context.Context, opts RecordOptions) error
	Pause() error
	Resume() error
	// Stop finalizes the encoder and returns the finished file path.
	Stop() (string, error)
	// Abort terminates recording and discards any partial output.
	Abort() error
}

// ffmpegRecorder records from video4linux and ALSA devices through ffmpeg.
// Pause and resume suspend the encoder process with job control signals so
// the container stays consistent.
type ffmpegRecorder struct {
	cfg *config.Config

	mu         sync.Mutex
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	outputPath string
	waitErr    chan error
}

// NewFFmpegRecorder builds a Recorder backed by the configured capture
// devices.
func NewFFmpegRecorder(cfg *config.Config) Recorder {
	return &ffmpegRecorder{cfg: cfg}
}

func (r *ffmpegRecorder) Start(ctx context.Context, opts RecordOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return services.Wrap(services.ErrInvalidState, "capture", "start recorder",
			"recorder already running", nil)
	}

	args, outputPath, err := r.buildArgs(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "capture", "create staging dir", "", err)
	}

	cmd := exec.CommandContext(ctx, r.cfg.FFmpegBinary(), args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return services.Wrap(services.ErrDeviceAccess, "capture", "start recorder", "open stdin pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrDeviceAccess, "capture", "start recorder",
			"launch ffmpeg", err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	// ffmpeg exits immediately when the device is missing or busy. Give it a
	// moment so Start can report device errors synchronously.
	select {
	case err := <-waitErr:
		_ = stdin.Close()
		return services.Wrap(services.ErrDeviceAccess, "capture", "start recorder",
			"device unavailable", err)
	case <-time.After(300 * time.Millisecond):
	}

	r.cmd = cmd
	r.stdin = stdin
	r.outputPath = outputPath
	r.waitErr = waitErr
	return nil
}

func (r *ffmpegRecorder) buildArgs(opts RecordOptions) ([]string, string, error) {
	videoDevice := r.cfg.Capture.VideoDevice
	audioDevice := r.cfg.Capture.AudioDevice

	var args []string
	ext := ".mp4"
	switch {
	case opts.AudioOnly:
		if audioDevice == "" {
			return nil, "", services.Wrap(services.ErrDeviceAccess, "capture", "plan recording",
				"no audio device configured", nil)
		}
		args = append(args, "-f", "alsa", "-i", audioDevice)
		args = append(args, "-c:a", "libopus")
		ext = ".opus"
	case opts.VideoOnly:
		if videoDevice == "" {
			return nil, "", services.Wrap(services.ErrDeviceAccess, "capture", "plan recording",
				"no video device configured", nil)
		}
		args = append(args, "-f", "v4l2", "-i", videoDevice)
		args = append(args, "-an", "-c:v", "libx264", "-preset", "veryfast")
	default:
		if videoDevice == "" {
			return nil, "", services.Wrap(services.ErrDeviceAccess, "capture", "plan recording",
				"no video device configured", nil)
		}
		args = append(args, "-f", "v4l2", "-i", videoDevice)
		if audioDevice != "" {
			args = append(args, "-f", "alsa", "-i", audioDevice)
			args = append(args, "-c:a", "aac")
		} else {
			args = append(args, "-an")
		}
		args = append(args, "-c:v", "libx264", "-preset", "veryfast")
	}

	if opts.MaxDurationSeconds > 0 {
		// Belt and braces under the controller's tick-driven stop: ffmpeg
		// enforces the ceiling too in case the process outlives the timer.
		args = append(args, "-t", fmt.Sprintf("%d", opts.MaxDurationSeconds+1))
	}

	outputPath := filepath.Join(r.cfg.Paths.StagingDir,
		fmt.Sprintf("capture-%s%s", time.Now().UTC().Format("20060102-150405"), ext))
	args = append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	args = append(args, outputPath)
	return args, outputPath, nil
}

func (r *ffmpegRecorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil || r.cmd.Process == nil {
		return services.Wrap(services.ErrInvalidState, "capture", "pause recorder",
			"recorder not running", nil)
	}
	if err := r.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return services.Wrap(services.ErrDeviceAccess, "capture", "pause recorder", "", err)
	}
	return nil
}

func (r *ffmpegRecorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil || r.cmd.Process == nil {
		return services.Wrap(services.ErrInvalidState, "capture", "resume recorder",
			"recorder not running", nil)
	}
	if err := r.cmd.Process.Signal(syscall.SIGCONT); err != nil {
		return services.Wrap(services.ErrDeviceAccess, "capture", "resume recorder", "", err)
	}
	return nil
}

func (r *ffmpegRecorder) Stop() (string, error) {
	r.mu.Lock()
	cmd := r.cmd
	stdin := r.stdin
	outputPath := r.outputPath
	waitErr := r.waitErr
	r.cmd = nil
	r.stdin = nil
	r.outputPath = ""
	r.waitErr = nil
	r.mu.Unlock()

	if cmd == nil {
		return "", services.Wrap(services.ErrInvalidState, "capture", "stop recorder",
			"recorder not running", nil)
	}

	// Ask ffmpeg to finalize the container gracefully, then wait for it to
	// flush buffered data before touching the output file.
	_ = cmd.Process.Signal(syscall.SIGCONT)
	if _, err := io.WriteString(stdin, "q"); err != nil {
		_ = cmd.Process.Kill()
	}
	_ = stdin.Close()

	select {
	case <-waitErr:
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		<-waitErr
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return "", services.Wrap(services.ErrDeviceAccess, "capture", "stop recorder",
			"recording produced no output", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(outputPath)
		return "", services.Wrap(services.ErrDeviceAccess, "capture", "stop recorder",
			"recording produced an empty file", nil)
	}
	return outputPath, nil
}

func (r *ffmpegRecorder) Abort() error {
	r.mu.Lock()
	cmd := r.cmd
	stdin := r.stdin
	outputPath := r.outputPath
	waitErr := r.waitErr
	r.cmd = nil
	r.stdin = nil
	r.outputPath = ""
	r.waitErr = nil
	r.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if stdin != nil {
		_ = stdin.Close()
	}
	_ = cmd.Process.Signal(syscall.SIGCONT)
	_ = cmd.Process.Kill()
	if waitErr != nil {
		<-waitErr
	}
	if outputPath != "" {
		_ = os.Remove(outputPath)
	}
	return nil
}
