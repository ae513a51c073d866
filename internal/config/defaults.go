package config

const (
	defaultOutputDir         = "~/videos/sprocket"
	defaultLogDir            = "~/.local/share/sprocket/logs"
	defaultURLFile           = "urls.txt"
	defaultTimestampFile     = "timestamps.txt"
	defaultFetchBinary       = "yt-dlp"
	defaultClipBinary        = "ffmpeg"
	defaultProbeBinary       = "ffprobe"
	defaultFetchConcurrency  = 2
	defaultRetryAttempts     = 3
	defaultRetryDelaySeconds = 2
	defaultFetchTimeout      = 3600
	defaultAudioBitrate      = "256k"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultNotifyTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Inputs: Inputs{
			URLFile:       defaultURLFile,
			TimestampFile: defaultTimestampFile,
		},
		Fetch: Fetch{
			Binary:            defaultFetchBinary,
			Concurrency:       defaultFetchConcurrency,
			RetryAttempts:     defaultRetryAttempts,
			RetryDelaySeconds: defaultRetryDelaySeconds,
			TimeoutSeconds:    defaultFetchTimeout,
			ReuseExisting:     true,
		},
		Clip: Clip{
			Binary:       defaultClipBinary,
			ProbeBinary:  defaultProbeBinary,
			AudioBitrate: defaultAudioBitrate,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
	}
}
