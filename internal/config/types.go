package config

import "time"

// QueueConfig tunes the Commander's job queue and run loop.
type QueueConfig struct {
	// Capacity bounds the number of queued (not yet started) jobs.
	// Zero means unbounded.
	Capacity int `json:"capacity"`
	// AutoExit stops the run loop once the task tree drains instead of
	// waiting for an explicit Exit.
	AutoExit bool `json:"auto_exit"`
}

// AuditConfig controls the opt-in SQLite lifecycle recorder.
type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"db_path"`
}

// RetryConfig configures exponential backoff retry behavior used by
// job and handler bodies that wrap flaky operations.
type RetryConfig struct {
	InitialInterval     time.Duration `json:"initial_interval"`
	MaxInterval         time.Duration `json:"max_interval"`
	MaxElapsedTime      time.Duration `json:"max_elapsed_time"`
	Multiplier          float64       `json:"multiplier"`
	RandomizationFactor float64       `json:"randomization_factor"`
}

// Config is the JSON-configurable surface of the commander-tui demo
// binary: how big a queue to give the Commander, whether to auto-exit
// when the tree drains, where to keep the audit trail, and how
// aggressively to retry flaky operations inside job bodies.
type Config struct {
	Queue QueueConfig `json:"queue"`
	Audit AuditConfig `json:"audit"`
	Retry RetryConfig `json:"retry"`
}
