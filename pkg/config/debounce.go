package config

import "time"

// DebounceConfig holds the defaults applied to debouncers built from config.
type DebounceConfig struct {
	Wait     time.Duration
	Leading  bool
	Trailing bool

	// LoaderWait is the coalescing window of the Redis and Postgres loaders.
	LoaderWait time.Duration
	// SaveWait is the window of the snapshot saver.
	SaveWait time.Duration
	// WatchWait is the window of the file watcher.
	WatchWait time.Duration
	// AwaitTimeout bounds how long an HTTP request waits for its result.
	AwaitTimeout time.Duration
}

func loadDebounceConfig() DebounceConfig {
	return DebounceConfig{
		Wait:       getEnvDuration("DEBOUNCE_WAIT", 100*time.Millisecond),
		Leading:    getEnvBool("DEBOUNCE_LEADING", false),
		Trailing:   getEnvBool("DEBOUNCE_TRAILING", true),
		LoaderWait: getEnvDuration("DEBOUNCE_LOADER_WAIT", 2*time.Millisecond),
		SaveWait:   getEnvDuration("DEBOUNCE_SAVE_WAIT", time.Second),
		WatchWait:  getEnvDuration("DEBOUNCE_WATCH_WAIT", 100*time.Millisecond),

		AwaitTimeout: getEnvDuration("DEBOUNCE_AWAIT_TIMEOUT", 30*time.Second),
	}
}
