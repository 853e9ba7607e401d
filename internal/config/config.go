// Package config loads application configuration from environment
// variables. No other package reads env vars directly; everything arrives
// through Config by dependency injection. Defaults suit local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends for scoped user data.
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// devSecret is only used outside production when JWT_SECRET is unset.
const devSecret = "dev-secret-key-do-not-use-in-production!!"

// Config holds all application configuration.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// StaticDir holds the presentation shell's files. Empty disables
	// static serving.
	StaticDir string

	// Storage selects the backend for per-user data: sqlite, redis or memory.
	// Identities always live in SQLite.
	Storage string

	// DBPath is the SQLite database file (default: "data/mentor.db").
	DBPath string

	Redis RedisConfig
	Auth  AuthConfig
	Timer TimerConfig
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379/0").
	URL string
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// JWTSecret signs session tokens. Must be 32+ characters in production.
	JWTSecret string

	// SessionTTL is how long a session token stays valid.
	SessionTTL time.Duration

	// BcryptCost is the work factor for password hashes.
	BcryptCost int
}

// TimerConfig tunes the focus timer and the points it awards.
type TimerConfig struct {
	// Interval between ticks. Only tests and demos change it.
	Interval time.Duration

	// FocusMinutes is the length of a fresh FOCUS countdown.
	FocusMinutes int

	FocusAward int
	FreeAward  int
	BreakAward int

	// AlertCommand runs when a countdown finishes, e.g. "paplay bell.ogg".
	AlertCommand string
}

// Load reads configuration from environment variables with sensible defaults.
//
// Numbers and durations that fail to parse fall back to their defaults, as
// does an unset variable. Load returns an error only for values that parse
// but are out of range, an unknown STORAGE, or a missing or weak secret in
// production.
func Load() (*Config, error) {
	cfg := &Config{
		Env:       getEnv("ENV", "development"),
		Port:      getEnvInt("PORT", 8080),
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		StaticDir: getEnv("STATIC_DIR", ""),
		Storage:   strings.ToLower(getEnv("STORAGE", StorageSQLite)),
		DBPath:    getEnv("DB_PATH", "data/mentor.db"),

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},

		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			SessionTTL: getEnvDuration("SESSION_TTL", 720*time.Hour),
			BcryptCost: getEnvInt("BCRYPT_COST", 12),
		},

		Timer: TimerConfig{
			Interval:     getEnvDuration("TIMER_INTERVAL", time.Second),
			FocusMinutes: getEnvInt("FOCUS_MINUTES", 25),
			FocusAward:   getEnvInt("FOCUS_AWARD", 50),
			FreeAward:    getEnvInt("FREE_AWARD", 20),
			BreakAward:   getEnvInt("BREAK_AWARD", 0),
			AlertCommand: getEnv("ALERT_COMMAND", ""),
		},
	}

	switch cfg.Storage {
	case StorageSQLite, StorageRedis, StorageMemory:
	default:
		return nil, fmt.Errorf("STORAGE must be one of sqlite, redis, memory (got %q)", cfg.Storage)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535 (got %d)", cfg.Port)
	}

	if cfg.Timer.Interval <= 0 {
		return nil, fmt.Errorf("TIMER_INTERVAL must be positive (got %s)", cfg.Timer.Interval)
	}

	if cfg.IsProduction() {
		if cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		if len(cfg.Auth.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = devSecret
	}

	return cfg, nil
}

// IsProduction reports whether the server runs in production. Secure
// cookies and the secret checks key off this.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// SlogLevel maps LogLevel onto a slog level. Unknown values mean Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
