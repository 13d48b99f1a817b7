package config

const (
	defaultStateDir              = "~/.local/share/reelhold/state"
	defaultLogDir                = "~/.local/share/reelhold/logs"
	defaultAPIBind               = "127.0.0.1:7519"
	defaultBackendRequestTimeout = 15
	defaultBackendFlushInterval  = 300
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Backend: Backend{
			RequestTimeout: defaultBackendRequestTimeout,
			ImportOnStart:  true,
			FlushInterval:  defaultBackendFlushInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Sync:           true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
