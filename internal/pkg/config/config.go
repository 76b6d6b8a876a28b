package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Sink names accepted by SINK.
const (
	SinkStdout   = "stdout"
	SinkDiscard  = "discard"
	SinkWAL      = "wal"
	SinkRedis    = "redis"
	SinkPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	MaxMessageSize    int           `env:"MAX_MESSAGE_SIZE_BYTES" envDefault:"1048576"` // 1MB
	Sink              string        `env:"SINK" envDefault:"stdout"`
	BatchSize         int           `env:"BATCH_SIZE" envDefault:"500"`
	WriteRetryCount   int           `env:"WRITE_RETRY_COUNT" envDefault:"3"`
	WriteRetryBackoff time.Duration `env:"WRITE_RETRY_BACKOFF" envDefault:"1s"`

	RedisAddr      string `env:"REDIS_ADDR"`
	RedisStream    string `env:"REDIS_STREAM" envDefault:"senzing_messages"`
	RedisDLQStream string `env:"REDIS_DLQ_STREAM" envDefault:"senzing_messages_dlq"`
	PostgresURL    string `env:"POSTGRES_URL"`

	WALPath        string `env:"WAL_PATH"`
	WALSegmentSize int64  `env:"WAL_SEGMENT_SIZE_BYTES" envDefault:"104857600"`  // 100MB
	WALMaxDiskSize int64  `env:"WAL_MAX_DISK_SIZE_BYTES" envDefault:"1073741824"` // 1GB

	RedactDetailKeys  []string      `env:"REDACT_DETAIL_KEYS" envSeparator:","`
	MetricsTextfile   string        `env:"METRICS_TEXTFILE"`
	RejectLogFirst    int           `env:"REJECT_LOG_FIRST" envDefault:"10"`
	RejectLogInterval time.Duration `env:"REJECT_LOG_INTERVAL" envDefault:"1s"`
	FailOnReject      bool          `env:"FAIL_ON_REJECT" envDefault:"true"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	cfg.Sink = strings.ToLower(strings.TrimSpace(cfg.Sink))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings needed by the selected sink are present.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxMessageSize <= 0 {
		errs = append(errs, errors.New("MAX_MESSAGE_SIZE_BYTES must be positive"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, errors.New("BATCH_SIZE must be positive"))
	}
	if c.WriteRetryCount < 0 {
		errs = append(errs, errors.New("WRITE_RETRY_COUNT must not be negative"))
	}

	switch c.Sink {
	case SinkStdout, SinkDiscard:
	case SinkWAL:
		if c.WALPath == "" {
			errs = append(errs, errors.New("WAL_PATH is required for the wal sink"))
		}
	case SinkRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis sink"))
		}
	case SinkPostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for the postgres sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SINK %q", c.Sink))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
