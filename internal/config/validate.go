package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateCompression(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

// validateRemote accepts an empty base URL: the agent is offline-first and
// must queue work locally even before the ingestion endpoint is configured.
func (c *Config) validateRemote() error {
	if c.Remote.BaseURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Remote.BaseURL)
	if err != nil {
		return fmt.Errorf("remote.base_url is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("remote.base_url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("remote.base_url must include a host")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.MaxDurationSeconds <= 0 {
		return errors.New("capture.max_duration_seconds must be positive")
	}
	if c.Capture.MaxDurationSeconds > 600 {
		return errors.New("capture.max_duration_seconds must not exceed 600")
	}
	return nil
}

func (c *Config) validateCompression() error {
	if c.Compression.VideoBitrateCeil < 100_000 {
		return errors.New("compression.video_bitrate_ceiling must be at least 100000")
	}
	if c.Compression.AudioBitrateCeil < 8_000 {
		return errors.New("compression.audio_bitrate_ceiling must be at least 8000")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
