package config

import "time"

// DefaultConfig returns the configuration a commander-tui instance
// starts with when no global or project file overrides it.
func DefaultConfig() *Config {
	return &Config{
		Queue: QueueConfig{
			Capacity: 0,
			AutoExit: true,
		},
		Audit: AuditConfig{
			Enabled: false,
			DBPath:  "commander-audit.db",
		},
		Retry: RetryConfig{
			InitialInterval:     100 * time.Millisecond,
			MaxInterval:         10 * time.Second,
			MaxElapsedTime:      2 * time.Minute,
			Multiplier:          2.0,
			RandomizationFactor: 0.5,
		},
	}
}
