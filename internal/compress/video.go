package compress

import (
	"context"
	"fmt"
	"strings"
)

func (c *Compressor) compressVideo(ctx context.Context, inputPath, outputPath string, durationSeconds float64) error {
	budget := c.cfg.Compression.VideoBudgetBytes
	bitrate := targetBitrate(budget, durationSeconds, c.cfg.Compression.VideoBitrateCeil, minVideoBitrate)
	if bitrate == 0 {
		return fmt.Errorf("cannot plan video bitrate for duration %.2fs", durationSeconds)
	}

	if err := c.transcodeVideo(ctx, inputPath, outputPath, bitrate); err != nil {
		return err
	}
	size, err := fileSize(outputPath)
	if err != nil {
		return err
	}
	if size <= budget {
		return nil
	}

	// One reduced-bitrate retry when the first pass overshot.
	return c.transcodeVideo(ctx, inputPath, outputPath, retryBitrate(bitrate, minVideoBitrate))
}

func (c *Compressor) transcodeVideo(ctx context.Context, inputPath, outputPath string, bitrate int64) error {
	scaleFilter := fmt.Sprintf(
		"scale='min(%d,iw)':'min(%d,ih)':force_original_aspect_ratio=decrease:force_divisible_by=2",
		c.cfg.Compression.MaxVideoWidth, c.cfg.Compression.MaxVideoHeight)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-vf", scaleFilter,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", fmt.Sprintf("%d", bitrate),
		"-maxrate", fmt.Sprintf("%d", bitrate),
		"-bufsize", fmt.Sprintf("%d", bitrate*2),
		"-c:a", "aac",
		"-b:a", "64k",
		"-movflags", "+faststart",
		outputPath,
	}
	output, err := c.run.Run(ctx, c.cfg.FFmpegBinary(), args...)
	if err != nil {
		return fmt.Errorf("ffmpeg video transcode: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
