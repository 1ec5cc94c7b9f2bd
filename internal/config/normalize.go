package config

import (
	"strings"
)

// normalize expands path fields and applies fallbacks for zero values.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(firstNonEmpty(c.Paths.DataDir, defaultDataDir)); err != nil {
		return err
	}
	if c.Paths.StagingDir, err = expandPath(firstNonEmpty(c.Paths.StagingDir, defaultStagingDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(firstNonEmpty(c.Paths.LogDir, defaultLogDir)); err != nil {
		return err
	}

	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	c.Remote.APIToken = strings.TrimSpace(c.Remote.APIToken)
	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = defaultRequestTimeout
	}
	if strings.TrimSpace(c.Remote.ProbePath) == "" {
		c.Remote.ProbePath = defaultProbePath
	}
	if !strings.HasPrefix(c.Remote.ProbePath, "/") {
		c.Remote.ProbePath = "/" + c.Remote.ProbePath
	}

	c.Capture.VideoDevice = strings.TrimSpace(c.Capture.VideoDevice)
	c.Capture.AudioDevice = strings.TrimSpace(c.Capture.AudioDevice)
	if c.Capture.MaxDurationSeconds <= 0 {
		c.Capture.MaxDurationSeconds = defaultMaxDurationSeconds
	}

	if c.Compression.ImageBudgetBytes <= 0 {
		c.Compression.ImageBudgetBytes = defaultImageBudgetBytes
	}
	if c.Compression.VideoBudgetBytes <= 0 {
		c.Compression.VideoBudgetBytes = defaultVideoBudgetBytes
	}
	if c.Compression.AudioBudgetBytes <= 0 {
		c.Compression.AudioBudgetBytes = defaultAudioBudgetBytes
	}
	if c.Compression.MaxImageWidth <= 0 {
		c.Compression.MaxImageWidth = defaultMaxImageWidth
	}
	if c.Compression.MaxImageHeight <= 0 {
		c.Compression.MaxImageHeight = defaultMaxImageHeight
	}
	if c.Compression.MaxVideoWidth <= 0 {
		c.Compression.MaxVideoWidth = defaultMaxVideoWidth
	}
	if c.Compression.MaxVideoHeight <= 0 {
		c.Compression.MaxVideoHeight = defaultMaxVideoHeight
	}
	if c.Compression.VideoBitrateCeil <= 0 {
		c.Compression.VideoBitrateCeil = defaultVideoBitrateCeil
	}
	if c.Compression.AudioBitrateCeil <= 0 {
		c.Compression.AudioBitrateCeil = defaultAudioBitrateCeil
	}
	if c.Compression.MinFreeSpaceBytes <= 0 {
		c.Compression.MinFreeSpaceBytes = defaultMinFreeSpaceBytes
	}

	if c.Sync.PollInterval <= 0 {
		c.Sync.PollInterval = defaultSyncPollInterval
	}
	if c.Sync.ProbeInterval <= 0 {
		c.Sync.ProbeInterval = defaultProbeInterval
	}
	if c.Sync.ProbeTimeout <= 0 {
		c.Sync.ProbeTimeout = defaultProbeTimeout
	}
	if c.Sync.ErrorRetryInterval <= 0 {
		c.Sync.ErrorRetryInterval = defaultErrorRetryInterval
	}

	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(firstNonEmpty(c.Logging.Format, defaultLogFormat)))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(firstNonEmpty(c.Logging.Level, defaultLogLevel)))

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
