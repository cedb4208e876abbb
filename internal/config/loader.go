package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SWAPD_* environment variable overrides, and
// returns the final Config. When path is empty the defaults are used as-is.
// The returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SWAPD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Storage ──
	setStr(&cfg.Storage.Backend, "SWAPD_STORAGE_BACKEND")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SWAPD_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "SWAPD_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "SWAPD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SWAPD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SWAPD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SWAPD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SWAPD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SWAPD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SWAPD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SWAPD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SWAPD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SWAPD_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SWAPD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SWAPD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SWAPD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SWAPD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SWAPD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SWAPD_REDIS_TLS_ENABLED")

	// ── Venues ──
	setFloat64(&cfg.Venues.Raydium.BasePrice, "SWAPD_VENUES_RAYDIUM_BASE_PRICE")
	setFloat64(&cfg.Venues.Raydium.Fee, "SWAPD_VENUES_RAYDIUM_FEE")
	setDuration(&cfg.Venues.Raydium.Latency, "SWAPD_VENUES_RAYDIUM_LATENCY")
	setFloat64(&cfg.Venues.Meteora.BasePrice, "SWAPD_VENUES_METEORA_BASE_PRICE")
	setFloat64(&cfg.Venues.Meteora.Fee, "SWAPD_VENUES_METEORA_FEE")
	setDuration(&cfg.Venues.Meteora.Latency, "SWAPD_VENUES_METEORA_LATENCY")

	// ── Settlement ──
	setFloat64(&cfg.Settlement.BasePrice, "SWAPD_SETTLEMENT_BASE_PRICE")
	setDuration(&cfg.Settlement.MinLatency, "SWAPD_SETTLEMENT_MIN_LATENCY")
	setDuration(&cfg.Settlement.MaxLatency, "SWAPD_SETTLEMENT_MAX_LATENCY")
	setFloat64(&cfg.Settlement.FailureRate, "SWAPD_SETTLEMENT_FAILURE_RATE")

	// ── Queue ──
	setInt(&cfg.Queue.Capacity, "SWAPD_QUEUE_CAPACITY")

	// ── Worker ──
	setInt(&cfg.Worker.Concurrency, "SWAPD_WORKER_CONCURRENCY")
	setInt(&cfg.Worker.RateLimit, "SWAPD_WORKER_RATE_LIMIT")
	setDuration(&cfg.Worker.RateWindow, "SWAPD_WORKER_RATE_WINDOW")
	setInt(&cfg.Worker.RetryAttempts, "SWAPD_WORKER_RETRY_ATTEMPTS")
	setDuration(&cfg.Worker.RetryBaseDelay, "SWAPD_WORKER_RETRY_BASE_DELAY")
	setFloat64(&cfg.Worker.RetryMultiplier, "SWAPD_WORKER_RETRY_MULTIPLIER")
	setDuration(&cfg.Worker.RetryMaxDelay, "SWAPD_WORKER_RETRY_MAX_DELAY")

	// ── Server ──
	setInt(&cfg.Server.Port, "SWAPD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SWAPD_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "SWAPD_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "SWAPD_SERVER_RATE_WINDOW")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "SWAPD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
