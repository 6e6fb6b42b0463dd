// Package config defines service configuration and its loading.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/royale/internal/domain/scoring"
)

var (
	// ErrInvalidConfig marks settings the service cannot run with.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a config file or environment that could not be read.
	ErrLoadConfig = errors.New("load config failed")
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// RequestTimeoutMS bounds HTTP reads and writes.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
	// MaxTelemetryBytes caps the size of a submitted telemetry body.
	MaxTelemetryBytes int64 `koanf:"max_telemetry_bytes"`
	// MaxResultSchedules caps the schedule list of POST /results.
	MaxResultSchedules int `koanf:"max_result_schedules"`

	// DBPath is the SQLite database file, or ":memory:".
	DBPath string `koanf:"db_path"`

	// QueueSize bounds the asynchronous ingestion queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the in-process game id guard.
	DedupeSize int `koanf:"dedupe_size"`

	// NATSURL enables the NATS telemetry subscriber when set.
	NATSURL string `koanf:"nats_url"`
	// NATSSubject is the subject telemetry is published on.
	NATSSubject string `koanf:"nats_subject"`
	// NATSQueue is the queue group shared by service replicas.
	NATSQueue string `koanf:"nats_queue"`
	// NATSEmbeddedPort starts an in-process NATS server on 127.0.0.1 when
	// positive. nats_url then defaults to that server.
	NATSEmbeddedPort int `koanf:"nats_embedded_port"`

	// MVPWeights split the MVP score between survival, damage and kills.
	MVPWeights scoring.Weights `koanf:"mvp_weights"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		RequestTimeoutMS:   10_000,
		MaxTelemetryBytes:  8 << 20,
		MaxResultSchedules: 64,
		DBPath:             "royale.db",
		QueueSize:          1_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         10_000,
		NATSSubject:        "royale.telemetry",
		NATSQueue:          "royale",
		MVPWeights:         scoring.DefaultWeights(),
	}
}

// Validate reports the first setting the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DBPath) == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MaxTelemetryBytes < 1:
		return fmt.Errorf("%w: max_telemetry_bytes must be positive", ErrInvalidConfig)
	case c.NATSEmbeddedPort < 0 || c.NATSEmbeddedPort > 65535:
		return fmt.Errorf("%w: nats_embedded_port out of range", ErrInvalidConfig)
	case (c.NATSURL != "" || c.NATSEmbeddedPort > 0) && strings.TrimSpace(c.NATSSubject) == "":
		return fmt.Errorf("%w: nats_subject must not be empty when nats_url is set", ErrInvalidConfig)
	}
	if err := c.MVPWeights.Validate(); err != nil {
		return fmt.Errorf("%w: mvp_weights: %w", ErrInvalidConfig, err)
	}
	return nil
}
