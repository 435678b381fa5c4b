// Package config loads and validates the service configuration from a
// YAML file, with environment overrides for deployment secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingDatabaseURL  = errors.New("database.url is required")
	ErrInvalidRowsPerPage  = errors.New("upstream.rows_per_page must be between 1 and 999")
	ErrInvalidMaxWorkers   = errors.New("upstream.max_workers must be at least 1")
	ErrInvalidMaxAttempts  = errors.New("upstream.max_attempts must be at least 1")
	ErrInvalidTimeout      = errors.New("upstream.timeout_sec must be at least 1")
	ErrInvalidMaxRangeDays = errors.New("upstream.max_range_days must be at least 1")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig configures the PostgreSQL store.
type DatabaseConfig struct {
	URL        string `yaml:"url"`
	Migrations string `yaml:"migrations"`
}

// RedisConfig configures the sync lock backend. An empty addr disables
// sync serialization.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	LockTTLMin int    `yaml:"lock_ttl_min"`
}

// UpstreamConfig configures the procurement API client.
type UpstreamConfig struct {
	BaseURL       string `yaml:"base_url"`
	RowsPerPage   int    `yaml:"rows_per_page"`
	MaxWorkers    int    `yaml:"max_workers"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	MaxAttempts   int    `yaml:"max_attempts"`
	RetryDelaySec int    `yaml:"retry_delay_sec"`
	MaxRangeDays  int    `yaml:"max_range_days"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Timeout returns the per-request timeout as a duration.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSec) * time.Second
}

// RetryDelay returns the flat inter-attempt delay as a duration.
func (u UpstreamConfig) RetryDelay() time.Duration {
	return time.Duration(u.RetryDelaySec) * time.Second
}

// LockTTL returns the sync lock lease duration.
func (r RedisConfig) LockTTL() time.Duration {
	return time.Duration(r.LockTTLMin) * time.Minute
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{
			Migrations: "file://migrations",
		},
		Redis: RedisConfig{LockTTLMin: 30},
		Upstream: UpstreamConfig{
			BaseURL:       "http://apis.data.go.kr/1230000/ao/PubDataOpnStdService",
			RowsPerPage:   100,
			MaxWorkers:    5,
			TimeoutSec:    30,
			MaxAttempts:   3,
			RetryDelaySec: 2,
			MaxRangeDays:  31,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	if c.Upstream.RowsPerPage < 1 || c.Upstream.RowsPerPage > 999 {
		return ErrInvalidRowsPerPage
	}
	if c.Upstream.MaxWorkers < 1 {
		return ErrInvalidMaxWorkers
	}
	if c.Upstream.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.Upstream.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}
	if c.Upstream.MaxRangeDays < 1 {
		return ErrInvalidMaxRangeDays
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}
