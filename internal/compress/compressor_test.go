package compress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fieldkit/internal/logging"
	"fieldkit/internal/media"
	"fieldkit/internal/media/ffprobe"
	"fieldkit/internal/testsupport"
)

type stubRunner struct {
	err   error
	calls int
	// output written to the last argument of each invocation, letting tests
	// shape the produced file size.
	produce []byte
}

func (s *stubRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return []byte("stub failure"), s.err
	}
	if len(args) > 0 && len(s.produce) > 0 {
		outputPath := args[len(args)-1]
		if err := os.WriteFile(outputPath, s.produce, 0o644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func stubProbe(duration string) func(context.Context, string, string) (ffprobe.Result, error) {
	return func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Format: ffprobe.Format{Duration: duration}}, nil
	}
}

func TestCompressPassesThroughFilesUnderBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	compressor := New(cfg, logging.NewNop())

	input := filepath.Join(t.TempDir(), "small.mp4")
	testsupport.WriteFile(t, input, 1024)

	result, err := compressor.Compress(context.Background(), input)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if result.Compressed {
		t.Fatal("expected pass-through for file under budget")
	}
	if result.Path != input {
		t.Fatalf("expected original path, got %s", result.Path)
	}
	if result.Kind != media.KindVideo {
		t.Fatalf("expected video kind, got %s", result.Kind)
	}
}

func TestCompressPassesThroughDocuments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	compressor := New(cfg, logging.NewNop())

	input := filepath.Join(t.TempDir(), "statement.pdf")
	testsupport.WriteFile(t, input, 20*1024*1024)

	result, err := compressor.Compress(context.Background(), input)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if result.Compressed || result.Path != input {
		t.Fatalf("expected document pass-through, got %+v", result)
	}
}

func TestCompressVideoProducesSmallerFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &stubRunner{produce: make([]byte, 2048)}
	compressor := New(cfg, logging.NewNop())
	compressor.run = runner

	original := compressProbe
	compressProbe = stubProbe("30")
	t.Cleanup(func() { compressProbe = original })

	input := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, input, cfg.Compression.VideoBudgetBytes+1024)

	result, err := compressor.Compress(context.Background(), input)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !result.Compressed {
		t.Fatalf("expected compressed result, got %+v", result)
	}
	if result.SizeBytes != 2048 {
		t.Fatalf("expected compressed size 2048, got %d", result.SizeBytes)
	}
	if runner.calls != 1 {
		t.Fatalf("expected single transcode pass, got %d", runner.calls)
	}
	if filepath.Ext(result.Path) != ".mp4" {
		t.Fatalf("unexpected output path %s", result.Path)
	}
}

func TestCompressFallsBackToOriginalOnEncoderFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &stubRunner{err: errors.New("exit status 1")}
	compressor := New(cfg, logging.NewNop())
	compressor.run = runner

	original := compressProbe
	compressProbe = stubProbe("30")
	t.Cleanup(func() { compressProbe = original })

	input := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, input, cfg.Compression.VideoBudgetBytes+1024)

	result, err := compressor.Compress(context.Background(), input)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if result.Compressed {
		t.Fatal("expected fallback to original")
	}
	if result.Path != input {
		t.Fatalf("expected original path, got %s", result.Path)
	}
	if result.FallbackReason == "" {
		t.Fatal("expected fallback reason recorded")
	}
}

func TestCompressKeepsOriginalWhenOutputIsLarger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	inputSize := cfg.Compression.VideoBudgetBytes + 1024
	runner := &stubRunner{produce: make([]byte, inputSize+4096)}
	compressor := New(cfg, logging.NewNop())
	compressor.run = runner

	original := compressProbe
	compressProbe = stubProbe("30")
	t.Cleanup(func() { compressProbe = original })

	input := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, input, inputSize)

	result, err := compressor.Compress(context.Background(), input)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if result.Compressed || result.Path != input {
		t.Fatalf("expected original kept, got %+v", result)
	}
	if result.FallbackReason == "" {
		t.Fatal("expected fallback reason recorded")
	}
}

func TestCompressImageEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Compression.ImageBudgetBytes = 64 * 1024
	compressor := New(cfg, logging.NewNop())

	input := filepath.Join(t.TempDir(), "photo.png")
	writeTestPNG(t, input, 2400, 1600)

	result, err := compressor.Compress(context.Background(), input)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !result.Compressed {
		t.Fatalf("expected compression, got %+v", result)
	}
	if result.MIMEType != "image/jpeg" {
		t.Fatalf("expected jpeg output, got %s", result.MIMEType)
	}
	if result.SizeBytes <= 0 {
		t.Fatal("expected recorded output size")
	}
}
