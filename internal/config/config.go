package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for the RelayQ server, read from the
// environment.
type Config struct {
	Env  string `env:"RELAYQ_ENV" envDefault:"development" validate:"required,oneof=development staging production"`
	Port int    `env:"RELAYQ_PORT" envDefault:"8080" validate:"min=1,max=65535"`

	// Store selection: Redis when REDIS_URL is set, otherwise the embedded
	// Badger store (development only).
	RedisURL   string `env:"REDIS_URL"`
	BadgerPath string `env:"BADGER_PATH" envDefault:"./data/relayq"`

	WorkerURL      string        `env:"WORKER_URL" validate:"omitempty,url"`
	WorkerSecret   string        `env:"WORKER_SHARED_SECRET"`
	TriggerTimeout time.Duration `env:"WORKER_TRIGGER_TIMEOUT" envDefault:"3s"`

	// JobTTL is the fixed window between a job's creation and its
	// store-level expiry, the leak-prevention backstop.
	JobTTL          time.Duration `env:"JOB_TTL" envDefault:"30m"`
	SessionIndexCap int           `env:"SESSION_INDEX_CAP" envDefault:"50" validate:"min=1,max=1000"`
	RateLimitPerMin int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30" validate:"min=1"`

	StreamPollInterval time.Duration `env:"STREAM_POLL_INTERVAL" envDefault:"500ms"`
	StreamMaxDuration  time.Duration `env:"STREAM_MAX_DURATION" envDefault:"2m"`
}

// Load reads configuration from environment variables and returns a
// validated Config. Fails fast with a descriptive message on anything
// missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.StreamPollInterval < 100*time.Millisecond || cfg.StreamPollInterval >= time.Second {
		return nil, fmt.Errorf("STREAM_POLL_INTERVAL must be sub-second and at least 100ms, got %s", cfg.StreamPollInterval)
	}

	// The development conveniences (embedded store, open worker auth) must
	// never be reachable in production.
	if cfg.Env == "production" {
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required in production")
		}
		if cfg.WorkerSecret == "" {
			return nil, fmt.Errorf("WORKER_SHARED_SECRET is required in production")
		}
	}

	return cfg, nil
}

// Development reports whether the deployment is explicitly flagged as a
// local/development environment.
func (c *Config) Development() bool {
	return c.Env == "development"
}
