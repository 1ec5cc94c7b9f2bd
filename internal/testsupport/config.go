package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"fieldkit/internal/config"
)

// ConfigOption mutates the generated test configuration before it is
// returned from NewConfig.
type ConfigOption func(tb testing.TB, baseDir string, cfg *config.Config)

// NewConfig produces a config rooted in a unique temp directory per test,
// with the remote disabled and the free-space guard off so tests never touch
// the network or depend on host disk state.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Remote.BaseURL = ""
	cfg.Compression.MinFreeSpaceBytes = 0

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// WithRemote points the test config at a server base URL.
func WithRemote(baseURL string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Remote.BaseURL = baseURL
	}
}

// WithCaptureDevices overrides the capture device paths on the test config.
func WithCaptureDevices(video, audio string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Capture.VideoDevice = video
		cfg.Capture.AudioDevice = audio
	}
}

// WithStubbedBinaries writes always-succeeding stub executables for the
// given names and prepends their directory to PATH for the duration of the
// test. With no names, the external binaries fieldkit shells out to are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(tb testing.TB, baseDir string, _ *config.Config) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := stubBinaries(tb, filepath.Join(baseDir, "bin"), names)
		tb.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

func stubBinaries(tb testing.TB, binDir string, names []string) string {
	tb.Helper()
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		tb.Fatalf("mkdir bin dir: %v", err)
	}
	for _, name := range names {
		script := []byte("#!/bin/sh\nexit 0\n")
		if err := os.WriteFile(filepath.Join(binDir, name), script, 0o755); err != nil {
			tb.Fatalf("write stub %s: %v", name, err)
		}
	}
	return binDir
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
