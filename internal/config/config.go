// Package config defines service configuration and loading.
//
// Conventions:
// - New returns the documented defaults; Load layers file and env on top.
// - A config that fails validation aborts startup, it is never silently
//   patched at call time.
package config

import (
	"runtime"

	"github.com/mirelk/cribsense/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory ingestion queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the deduplication caches.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the event store.
	ShardCount int `koanf:"shard_count"`

	// RetentionHours sets how long events stay queryable.
	RetentionHours float64 `koanf:"retention_hours"`

	// WindowHours sets how far back predictions look for events.
	WindowHours float64 `koanf:"window_hours"`

	// CryCountWindowHours sets the window for counting crying episodes.
	CryCountWindowHours float64 `koanf:"cry_count_window_hours"`

	// Thresholds holds the default per-cause time thresholds.
	Thresholds model.Thresholds `koanf:"thresholds"`

	// DecayRate moves a learned threshold toward each observed delta.
	DecayRate float64 `koanf:"decay_rate"`

	// MinClampFactor and MaxClampFactor bound learned thresholds as
	// multiples of their configured defaults.
	MinClampFactor float64 `koanf:"min_clamp_factor"`
	MaxClampFactor float64 `koanf:"max_clamp_factor"`

	// MinBabyFeedback gates a baby's own pool over the global one.
	MinBabyFeedback int `koanf:"min_baby_feedback"`

	// TieEpsilon is the confidence margin treated as a tie.
	TieEpsilon float64 `koanf:"tie_epsilon"`
}

// New creates a Config with the documented defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":8080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          50_000,
		ShardCount:          8,
		RetentionHours:      48,
		WindowHours:         24,
		CryCountWindowHours: 3,
		Thresholds:          model.DefaultThresholds(),
		DecayRate:           0.15,
		MinClampFactor:      0.5,
		MaxClampFactor:      2.0,
		MinBabyFeedback:     10,
		TieEpsilon:          0.05,
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return NewKind("config.validate", ErrInvalidConfig, "addr must not be empty")
	case c.QueueSize < 1:
		return NewKind("config.validate", ErrInvalidConfig, "queue_size must be positive")
	case c.WorkerCount < 1:
		return NewKind("config.validate", ErrInvalidConfig, "worker_count must be positive")
	case c.DedupeSize < 1:
		return NewKind("config.validate", ErrInvalidConfig, "dedupe_size must be positive")
	case c.ShardCount < 1:
		return NewKind("config.validate", ErrInvalidConfig, "shard_count must be positive")
	case c.RetentionHours <= 0:
		return NewKind("config.validate", ErrInvalidConfig, "retention_hours must be positive")
	case c.WindowHours <= 0:
		return NewKind("config.validate", ErrInvalidConfig, "window_hours must be positive")
	case c.WindowHours > c.RetentionHours:
		return NewKind("config.validate", ErrInvalidConfig, "window_hours must not exceed retention_hours")
	case c.CryCountWindowHours <= 0:
		return NewKind("config.validate", ErrInvalidConfig, "cry_count_window_hours must be positive")
	case c.DecayRate <= 0 || c.DecayRate >= 1:
		return NewKind("config.validate", ErrInvalidConfig, "decay_rate must be in (0, 1)")
	case c.MinClampFactor <= 0 || c.MinClampFactor >= 1:
		return NewKind("config.validate", ErrInvalidConfig, "min_clamp_factor must be in (0, 1)")
	case c.MaxClampFactor < 1:
		return NewKind("config.validate", ErrInvalidConfig, "max_clamp_factor must be at least 1")
	case c.MinBabyFeedback < 1:
		return NewKind("config.validate", ErrInvalidConfig, "min_baby_feedback must be positive")
	case c.TieEpsilon <= 0 || c.TieEpsilon >= 1:
		return NewKind("config.validate", ErrInvalidConfig, "tie_epsilon must be in (0, 1)")
	}
	if err := c.Thresholds.Validate(); err != nil {
		return WrapKind("config.validate", ErrInvalidConfig, err)
	}
	return nil
}
