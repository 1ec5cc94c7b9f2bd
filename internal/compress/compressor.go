package compress

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"fieldkit/internal/config"
	"fieldkit/internal/logging"
	"fieldkit/internal/media"
	"fieldkit/internal/media/ffprobe"
	"fieldkit/internal/services"
)

var compressProbe = ffprobe.Inspect

// Result describes the outcome of compressing one evidence file.
type Result struct {
	Path      string
	FileName  string
	MIMEType  string
	Kind      media.Kind
	SizeBytes int64
	// Compressed is false when the original file was kept, either because
	// it already fit the budget or because compression failed.
	Compressed bool
	// FallbackReason records why the original was kept after a failed
	// compression attempt. Empty on success and on pass-through.
	FallbackReason string
}

// Compressor shrinks evidence files into their configured size budgets.
type Compressor struct {
	cfg    *config.Config
	logger *slog.Logger
	run    commandRunner
}

// New constructs a Compressor using the real ffmpeg binary.
func New(cfg *config.Config, logger *slog.Logger) *Compressor {
	return &Compressor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "compress"),
		run:    execRunner{},
	}
}

// Compress processes inputPath and returns the file the caller should
// persist. The input file is never modified or removed. Compression failure
// is not fatal: the original file is returned with the failure recorded, so
// evidence is preserved even when an encoder cannot handle it.
func (c *Compressor) Compress(ctx context.Context, inputPath string) (Result, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "compress", "stat input", inputPath, err)
	}

	fileName := filepath.Base(inputPath)
	kind := media.DetectKind("", fileName)
	result := Result{
		Path:      inputPath,
		FileName:  fileName,
		MIMEType:  media.MIMEForExtension(fileName),
		Kind:      kind,
		SizeBytes: info.Size(),
	}

	budget := c.budgetFor(kind)
	if budget <= 0 || kind == media.KindDocument {
		return result, nil
	}
	if info.Size() <= budget {
		c.logger.Debug("file already within budget",
			logging.String("file", fileName),
			logging.Int64("size_bytes", info.Size()))
		return result, nil
	}

	outputPath := c.outputPath(inputPath, kind)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrStorage, "compress", "create staging dir", "", err)
	}

	if err := c.compressKind(ctx, kind, inputPath, outputPath); err != nil {
		c.logger.Warn("compression failed, keeping original",
			logging.String("file", fileName),
			logging.Error(err))
		_ = os.Remove(outputPath)
		result.FallbackReason = err.Error()
		return result, nil
	}

	size, err := fileSize(outputPath)
	if err != nil {
		_ = os.Remove(outputPath)
		result.FallbackReason = err.Error()
		return result, nil
	}
	if size <= 0 || size >= info.Size() {
		// A transcode that grows the file helps nobody.
		_ = os.Remove(outputPath)
		result.FallbackReason = fmt.Sprintf("compressed size %d not smaller than original %d", size, info.Size())
		return result, nil
	}

	outputName := filepath.Base(outputPath)
	c.logger.Info("compressed evidence file",
		logging.String("file", fileName),
		logging.String("output", outputName),
		logging.Int64("original_bytes", info.Size()),
		logging.Int64("compressed_bytes", size))

	result.Path = outputPath
	result.FileName = outputName
	result.MIMEType = media.MIMEForExtension(outputName)
	result.SizeBytes = size
	result.Compressed = true
	return result, nil
}

func (c *Compressor) compressKind(ctx context.Context, kind media.Kind, inputPath, outputPath string) error {
	switch kind {
	case media.KindImage:
		_, err := c.compressImage(inputPath, outputPath)
		return err
	case media.KindVideo, media.KindAudio:
		probe, err := compressProbe(ctx, c.cfg.FFprobeBinary(), inputPath)
		if err != nil {
			return err
		}
		duration := probe.DurationSeconds()
		if kind == media.KindVideo {
			return c.compressVideo(ctx, inputPath, outputPath, duration)
		}
		return c.compressAudio(ctx, inputPath, outputPath, duration)
	}
	return fmt.Errorf("no compressor for kind %s", kind)
}

func (c *Compressor) budgetFor(kind media.Kind) int64 {
	switch kind {
	case media.KindImage:
		return c.cfg.Compression.ImageBudgetBytes
	case media.KindVideo:
		return c.cfg.Compression.VideoBudgetBytes
	case media.KindAudio:
		return c.cfg.Compression.AudioBudgetBytes
	}
	return 0
}

func (c *Compressor) outputPath(inputPath string, kind media.Kind) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	ext := ".jpg"
	switch kind {
	case media.KindVideo:
		ext = ".mp4"
	case media.KindAudio:
		ext = ".opus"
	}
	return filepath.Join(c.cfg.Paths.StagingDir, stem+"-compressed"+ext)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}
