// Package config defines the service configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory match queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many submission IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxResults bounds the in-memory result store. Unused with DatabaseURL.
	MaxResults int `koanf:"max_results"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// ScoringParallelism is the number of zones scored concurrently per board.
	ScoringParallelism int `koanf:"scoring_parallelism"`

	// CheckInvariants makes the engine verify zone ordering before scoring.
	CheckInvariants bool `koanf:"check_invariants"`

	// DatabaseURL enables the Postgres result store when set.
	DatabaseURL string `koanf:"database_url"`

	// Kafka consumer settings. The consumer is disabled without brokers.
	KafkaBrokers       []string `koanf:"kafka_brokers"`
	KafkaTopic         string   `koanf:"kafka_topic"`
	KafkaGroupID       string   `koanf:"kafka_group_id"`
	KafkaPollTimeoutMS int      `koanf:"kafka_poll_timeout_ms"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          100_000,
		MaxResults:          100_000,
		MaxLeaderboardLimit: 100,
		ScoringParallelism:  1,
		CheckInvariants:     false,
		KafkaTopic:          "billboards.matches",
		KafkaGroupID:        "billboards-evaluation",
		KafkaPollTimeoutMS:  1000,
	}
}

// KafkaEnabled reports whether a Kafka consumer should be started.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Validate checks the configuration. Every failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("queue_size must be positive, got %d: %w", c.QueueSize, ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("worker_count must be positive, got %d: %w", c.WorkerCount, ErrInvalidConfig)
	case c.MaxResults <= 0:
		return fmt.Errorf("max_results must be positive, got %d: %w", c.MaxResults, ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("max_leaderboard_limit must be positive, got %d: %w", c.MaxLeaderboardLimit, ErrInvalidConfig)
	case c.ScoringParallelism <= 0:
		return fmt.Errorf("scoring_parallelism must be positive, got %d: %w", c.ScoringParallelism, ErrInvalidConfig)
	}
	if c.KafkaEnabled() {
		if c.KafkaTopic == "" || c.KafkaGroupID == "" {
			return fmt.Errorf("kafka_topic and kafka_group_id are required with kafka_brokers: %w", ErrInvalidConfig)
		}
		if c.KafkaPollTimeoutMS <= 0 {
			return fmt.Errorf("kafka_poll_timeout_ms must be positive, got %d: %w", c.KafkaPollTimeoutMS, ErrInvalidConfig)
		}
	}
	return nil
}
