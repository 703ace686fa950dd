package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backends.
const (
	LedgerPostgres   = "postgres"
	LedgerClickHouse = "clickhouse"
)

type Config struct {
	DatabaseURL  string
	Port         string
	LogLevel     string
	PageSize     int
	QueryTimeout time.Duration

	// Price ledger
	LedgerBackend       string
	LedgerDatabaseURL   string
	LedgerShards        int
	ClickHouseDSN       string
	UnverifiedPartition string

	StrictAddresses bool

	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration

	RunMigrations bool
}

// Load reads configuration from the environment, after merging a .env file
// from the working directory if one exists. Variables already set in the
// environment take precedence over the file.
func Load() Config {
	_ = godotenv.Load()

	databaseURL := getEnvRequired("DATABASE_URL")
	return Config{
		DatabaseURL:         databaseURL,
		Port:                getEnv("PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		PageSize:            getEnvInt("PAGE_SIZE", 20),
		QueryTimeout:        getEnvDuration("QUERY_TIMEOUT", 5*time.Second),
		LedgerBackend:       getEnv("LEDGER_BACKEND", LedgerPostgres),
		LedgerDatabaseURL:   getEnv("LEDGER_DATABASE_URL", databaseURL),
		LedgerShards:        getEnvInt("LEDGER_SHARDS", 1),
		ClickHouseDSN:       getEnv("CLICKHOUSE_DSN", ""),
		UnverifiedPartition: getEnv("UNVERIFIED_PARTITION", "Unverifeyed"),
		StrictAddresses:     getEnvBool("STRICT_ADDRESSES", false),
		BreakerMaxFailures:  getEnvInt("BREAKER_MAX_FAILURES", 5),
		BreakerResetTimeout: getEnvDuration("BREAKER_RESET_TIMEOUT", 30*time.Second),
		RunMigrations:       getEnvBool("RUN_MIGRATIONS", false),
	}
}

// SlogLevel maps LogLevel onto a slog level; unknown names mean info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvRequired(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic("required environment variable " + key + " is not set")
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return d
	}
	return fallback
}
