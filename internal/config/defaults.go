package config

const (
	defaultDataDir    = "~/.local/share/fieldkit/data"
	defaultStagingDir = "~/.local/share/fieldkit/staging"
	defaultLogDir     = "~/.local/share/fieldkit/logs"

	defaultProbePath      = "/health"
	defaultRequestTimeout = 30

	defaultVideoDevice        = "/dev/video0"
	defaultAudioDevice        = "default"
	defaultMaxDurationSeconds = 35

	defaultImageBudgetBytes  = 2 * 1024 * 1024
	defaultVideoBudgetBytes  = 5 * 1024 * 1024
	defaultAudioBudgetBytes  = 1 * 1024 * 1024
	defaultMaxImageWidth     = 1920
	defaultMaxImageHeight    = 1080
	defaultMaxVideoWidth     = 1280
	defaultMaxVideoHeight    = 720
	defaultVideoBitrateCeil  = 2_000_000
	defaultAudioBitrateCeil  = 96_000
	defaultMinFreeSpaceBytes = 50 * 1024 * 1024

	defaultSyncPollInterval   = 60
	defaultProbeInterval      = 15
	defaultProbeTimeout       = 5
	defaultErrorRetryInterval = 30

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Remote: Remote{
			RequestTimeout: defaultRequestTimeout,
			ProbePath:      defaultProbePath,
		},
		Capture: Capture{
			VideoDevice:        defaultVideoDevice,
			AudioDevice:        defaultAudioDevice,
			MaxDurationSeconds: defaultMaxDurationSeconds,
		},
		Compression: Compression{
			ImageBudgetBytes:  defaultImageBudgetBytes,
			VideoBudgetBytes:  defaultVideoBudgetBytes,
			AudioBudgetBytes:  defaultAudioBudgetBytes,
			MaxImageWidth:     defaultMaxImageWidth,
			MaxImageHeight:    defaultMaxImageHeight,
			MaxVideoWidth:     defaultMaxVideoWidth,
			MaxVideoHeight:    defaultMaxVideoHeight,
			VideoBitrateCeil:  defaultVideoBitrateCeil,
			AudioBitrateCeil:  defaultAudioBitrateCeil,
			MinFreeSpaceBytes: defaultMinFreeSpaceBytes,
		},
		Sync: Sync{
			PollInterval:       defaultSyncPollInterval,
			ProbeInterval:      defaultProbeInterval,
			ProbeTimeout:       defaultProbeTimeout,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Sync:           true,
			Capture:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
