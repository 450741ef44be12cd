package stepflow

import "time"

// Config holds engine-wide configuration.
type Config struct {
	// ShutdownTimeout bounds how long Supervisor.Shutdown waits for live
	// RunWorkers to finish before returning.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ShutdownTimeout: 30 * time.Second,
	}
}
