// Package config defines the top-level configuration for the swap execution
// daemon and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SWAPD_* environment variables.
type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	Venues     VenuesConfig     `toml:"venues"`
	Settlement SettlementConfig `toml:"settlement"`
	Queue      QueueConfig      `toml:"queue"`
	Worker     WorkerConfig     `toml:"worker"`
	Server     ServerConfig     `toml:"server"`
	LogLevel   string           `toml:"log_level"`
}

// StorageConfig selects the order persistence backend.
type StorageConfig struct {
	// Backend is "postgres" or "memory".
	Backend string `toml:"backend"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. When disabled, rate limiting
// falls back to an in-process limiter and no update mirror is published.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// VenueConfig holds quote-simulation parameters for a single venue.
type VenueConfig struct {
	BasePrice     float64  `toml:"base_price"`
	VarianceMin   float64  `toml:"variance_min"`
	VarianceMax   float64  `toml:"variance_max"`
	Fee           float64  `toml:"fee"`
	ImpactDivisor float64  `toml:"impact_divisor"`
	ImpactRate    float64  `toml:"impact_rate"`
	Latency       duration `toml:"latency"`
}

// VenuesConfig holds per-venue quote parameters.
type VenuesConfig struct {
	Raydium VenueConfig `toml:"raydium"`
	Meteora VenueConfig `toml:"meteora"`
}

// SettlementConfig holds transaction-settlement simulation parameters.
type SettlementConfig struct {
	BasePrice   float64  `toml:"base_price"`
	MinLatency  duration `toml:"min_latency"`
	MaxLatency  duration `toml:"max_latency"`
	FailureRate float64  `toml:"failure_rate"`
}

// QueueConfig holds execution-queue parameters.
type QueueConfig struct {
	Capacity int `toml:"capacity"`
}

// WorkerConfig holds worker-pool and retry parameters.
type WorkerConfig struct {
	Concurrency     int      `toml:"concurrency"`
	RateLimit       int      `toml:"rate_limit"`
	RateWindow      duration `toml:"rate_window"`
	RetryAttempts   int      `toml:"retry_attempts"`
	RetryBaseDelay  duration `toml:"retry_base_delay"`
	RetryMultiplier float64  `toml:"retry_multiplier"`
	RetryMaxDelay   duration `toml:"retry_max_delay"`
}

// ServerConfig holds HTTP server parameters. RateLimit and RateWindow
// bound mutating API requests per client and are independent of the
// worker's execution throttle.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{
			Backend: "memory",
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "swapd",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Venues: VenuesConfig{
			Raydium: VenueConfig{
				BasePrice:     150,
				VarianceMin:   0.98,
				VarianceMax:   1.02,
				Fee:           0.0025,
				ImpactDivisor: 1000,
				ImpactRate:    0.01,
				Latency:       duration{200 * time.Millisecond},
			},
			Meteora: VenueConfig{
				BasePrice:     150,
				VarianceMin:   0.97,
				VarianceMax:   1.03,
				Fee:           0.002,
				ImpactDivisor: 800,
				ImpactRate:    0.012,
				Latency:       duration{200 * time.Millisecond},
			},
		},
		Settlement: SettlementConfig{
			BasePrice:   150,
			MinLatency:  duration{2 * time.Second},
			MaxLatency:  duration{3 * time.Second},
			FailureRate: 0.10,
		},
		Queue: QueueConfig{
			Capacity: 1024,
		},
		Worker: WorkerConfig{
			Concurrency:     10,
			RateLimit:       100,
			RateWindow:      duration{time.Minute},
			RetryAttempts:   3,
			RetryBaseDelay:  duration{time.Second},
			RetryMultiplier: 2,
			RetryMaxDelay:   duration{time.Minute},
		},
		Server: ServerConfig{
			Port:        3000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   60,
			RateWindow:  duration{time.Minute},
		},
		LogLevel: "info",
	}
}

// validBackends enumerates the accepted values for StorageConfig.Backend.
var validBackends = map[string]bool{
	"postgres": true,
	"memory":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Storage
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, fmt.Sprintf("storage: unknown backend %q (valid: postgres, memory)", c.Storage.Backend))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres is only checked when selected as the backend.
	if strings.ToLower(c.Storage.Backend) == "postgres" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Venues
	for _, v := range []struct {
		name string
		cfg  VenueConfig
	}{
		{"raydium", c.Venues.Raydium},
		{"meteora", c.Venues.Meteora},
	} {
		if v.cfg.BasePrice <= 0 {
			errs = append(errs, fmt.Sprintf("venues.%s: base_price must be > 0", v.name))
		}
		if v.cfg.VarianceMin <= 0 || v.cfg.VarianceMax < v.cfg.VarianceMin {
			errs = append(errs, fmt.Sprintf("venues.%s: variance bounds must satisfy 0 < variance_min <= variance_max", v.name))
		}
		if v.cfg.Fee < 0 {
			errs = append(errs, fmt.Sprintf("venues.%s: fee must be >= 0", v.name))
		}
		if v.cfg.Latency.Duration < 0 {
			errs = append(errs, fmt.Sprintf("venues.%s: latency must be >= 0", v.name))
		}
	}

	// Settlement
	if c.Settlement.BasePrice <= 0 {
		errs = append(errs, "settlement: base_price must be > 0")
	}
	if c.Settlement.MinLatency.Duration < 0 || c.Settlement.MaxLatency.Duration < c.Settlement.MinLatency.Duration {
		errs = append(errs, "settlement: latency bounds must satisfy 0 <= min_latency <= max_latency")
	}
	if c.Settlement.FailureRate < 0 || c.Settlement.FailureRate > 1 {
		errs = append(errs, fmt.Sprintf("settlement: failure_rate must be in [0, 1], got %v", c.Settlement.FailureRate))
	}

	// Queue
	if c.Queue.Capacity < 1 {
		errs = append(errs, "queue: capacity must be >= 1")
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		errs = append(errs, "worker: concurrency must be >= 1")
	}
	if c.Worker.RateLimit < 1 {
		errs = append(errs, "worker: rate_limit must be >= 1")
	}
	if c.Worker.RateWindow.Duration <= 0 {
		errs = append(errs, "worker: rate_window must be > 0")
	}
	if c.Worker.RetryAttempts < 1 {
		errs = append(errs, "worker: retry_attempts must be >= 1")
	}
	if c.Worker.RetryBaseDelay.Duration <= 0 {
		errs = append(errs, "worker: retry_base_delay must be > 0")
	}
	if c.Worker.RetryMultiplier < 1 {
		errs = append(errs, "worker: retry_multiplier must be >= 1")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 1 {
		errs = append(errs, "server: rate_limit must be >= 1")
	}
	if c.Server.RateWindow.Duration <= 0 {
		errs = append(errs, "server: rate_window must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
