package config

const (
	defaultDataDir            = "~/.local/share/gleaner"
	defaultLogDir             = "~/.local/share/gleaner/logs"
	defaultMediaDir           = "~/.local/share/gleaner/media"
	defaultAPIBind            = "127.0.0.1:7319"
	defaultLogFormat          = "auto"
	defaultLogLevel           = "info"
	defaultWorkers            = 4
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultRequestTimeout     = 10
	defaultWorkerTimeout      = 60
	defaultMaxAttempts        = 3
	defaultBackoffBaseSeconds = 30
	defaultBackoffCapSeconds  = 900
	defaultUserAgent          = "Gleaner/0.1"
	defaultMaxDownloadMiB     = 256
	defaultRateLimitPerMinute = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			MediaDir: defaultMediaDir,
			APIBind:  defaultAPIBind,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Fetch: Fetch{
			RequestTimeout:     defaultRequestTimeout,
			WorkerTimeout:      defaultWorkerTimeout,
			MaxAttempts:        defaultMaxAttempts,
			BackoffBaseSeconds: defaultBackoffBaseSeconds,
			BackoffCapSeconds:  defaultBackoffCapSeconds,
			UserAgent:          defaultUserAgent,
			MaxDownloadMiB:     defaultMaxDownloadMiB,
		},
		Platforms: Platforms{
			Enabled: []string{"tiktok", "youtube", "generic"},
			RateLimits: map[string]int{
				"tiktok":  defaultRateLimitPerMinute,
				"youtube": 100,
				"generic": defaultRateLimitPerMinute,
			},
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Completed:      false,
			Errors:         true,
			QueueDrained:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DefaultRateLimit is the request budget applied to platforms without an
// explicit entry in [platforms.rate_limits].
const DefaultRateLimit = defaultRateLimitPerMinute
