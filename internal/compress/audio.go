package compress

import (
	"context"
	"fmt"
	"strings"
)

func (c *Compressor) compressAudio(ctx context.Context, inputPath, outputPath string, durationSeconds float64) error {
	budget := c.cfg.Compression.AudioBudgetBytes
	bitrate := targetBitrate(budget, durationSeconds, c.cfg.Compression.AudioBitrateCeil, minAudioBitrate)
	if bitrate == 0 {
		return fmt.Errorf("cannot plan audio bitrate for duration %.2fs", durationSeconds)
	}

	if err := c.transcodeAudio(ctx, inputPath, outputPath, bitrate); err != nil {
		return err
	}
	size, err := fileSize(outputPath)
	if err != nil {
		return err
	}
	if size <= budget {
		return nil
	}

	return c.transcodeAudio(ctx, inputPath, outputPath, retryBitrate(bitrate, minAudioBitrate))
}

func (c *Compressor) transcodeAudio(ctx context.Context, inputPath, outputPath string, bitrate int64) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-c:a", "libopus",
		"-b:a", fmt.Sprintf("%d", bitrate),
		outputPath,
	}
	output, err := c.run.Run(ctx, c.cfg.FFmpegBinary(), args...)
	if err != nil {
		return fmt.Errorf("ffmpeg audio transcode: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
