package config

import (
	"log/slog"
	"testing"
	"time"
)

var allKeys = []string{
	"DATABASE_URL", "PORT", "LOG_LEVEL", "PAGE_SIZE", "QUERY_TIMEOUT",
	"LEDGER_BACKEND", "LEDGER_DATABASE_URL", "LEDGER_SHARDS", "CLICKHOUSE_DSN",
	"UNVERIFIED_PARTITION", "STRICT_ADDRESSES", "BREAKER_MAX_FAILURES",
	"BREAKER_RESET_TIMEOUT", "RUN_MIGRATIONS",
}

// clearEnv blanks every variable Load reads; empty values fall back to the
// defaults just like unset ones.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/offers")

	cfg := Load()

	if cfg.DatabaseURL != "postgres://localhost/offers" {
		t.Errorf("DatabaseURL: got %q", cfg.DatabaseURL)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port: got %q, want %q", cfg.Port, "8080")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.PageSize != 20 {
		t.Errorf("PageSize: got %d, want 20", cfg.PageSize)
	}
	if cfg.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout: got %v", cfg.QueryTimeout)
	}
	if cfg.LedgerBackend != LedgerPostgres {
		t.Errorf("LedgerBackend: got %q", cfg.LedgerBackend)
	}
	if cfg.LedgerDatabaseURL != cfg.DatabaseURL {
		t.Errorf("LedgerDatabaseURL should default to DatabaseURL, got %q", cfg.LedgerDatabaseURL)
	}
	if cfg.LedgerShards != 1 {
		t.Errorf("LedgerShards: got %d, want 1", cfg.LedgerShards)
	}
	if cfg.UnverifiedPartition != "Unverifeyed" {
		t.Errorf("UnverifiedPartition: got %q", cfg.UnverifiedPartition)
	}
	if cfg.StrictAddresses || cfg.RunMigrations {
		t.Error("boolean flags should default to false")
	}
	if cfg.BreakerMaxFailures != 5 || cfg.BreakerResetTimeout != 30*time.Second {
		t.Errorf("breaker: got %d / %v", cfg.BreakerMaxFailures, cfg.BreakerResetTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://offers")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PAGE_SIZE", "50")
	t.Setenv("QUERY_TIMEOUT", "750ms")
	t.Setenv("LEDGER_BACKEND", "clickhouse")
	t.Setenv("LEDGER_DATABASE_URL", "postgres://ledger")
	t.Setenv("LEDGER_SHARDS", "8")
	t.Setenv("CLICKHOUSE_DSN", "clickhouse://ch:9000/ledger")
	t.Setenv("UNVERIFIED_PARTITION", "Unknown")
	t.Setenv("STRICT_ADDRESSES", "true")
	t.Setenv("BREAKER_MAX_FAILURES", "2")
	t.Setenv("BREAKER_RESET_TIMEOUT", "1m")
	t.Setenv("RUN_MIGRATIONS", "1")

	cfg := Load()

	if cfg.Port != "9090" || cfg.LogLevel != "debug" || cfg.PageSize != 50 {
		t.Errorf("server settings: got %+v", cfg)
	}
	if cfg.QueryTimeout != 750*time.Millisecond {
		t.Errorf("QueryTimeout: got %v", cfg.QueryTimeout)
	}
	if cfg.LedgerBackend != LedgerClickHouse || cfg.LedgerDatabaseURL != "postgres://ledger" || cfg.LedgerShards != 8 {
		t.Errorf("ledger settings: got %+v", cfg)
	}
	if cfg.ClickHouseDSN != "clickhouse://ch:9000/ledger" {
		t.Errorf("ClickHouseDSN: got %q", cfg.ClickHouseDSN)
	}
	if cfg.UnverifiedPartition != "Unknown" {
		t.Errorf("UnverifiedPartition: got %q", cfg.UnverifiedPartition)
	}
	if !cfg.StrictAddresses || !cfg.RunMigrations {
		t.Error("boolean flags not parsed")
	}
	if cfg.BreakerMaxFailures != 2 || cfg.BreakerResetTimeout != time.Minute {
		t.Errorf("breaker: got %d / %v", cfg.BreakerMaxFailures, cfg.BreakerResetTimeout)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	clearEnv(t)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for missing DATABASE_URL")
		}
	}()
	Load()
}

func TestGetEnvInt_Invalid(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")
	if got := getEnvInt("TEST_INT", 42); got != 42 {
		t.Errorf("got %d, want fallback 42", got)
	}
}

func TestGetEnvBool_Invalid(t *testing.T) {
	t.Setenv("TEST_BOOL", "maybe")
	if got := getEnvBool("TEST_BOOL", true); !got {
		t.Error("expected fallback true")
	}
}

func TestGetEnvDuration_Invalid(t *testing.T) {
	t.Setenv("TEST_DUR", "soon")
	if got := getEnvDuration("TEST_DUR", time.Second); got != time.Second {
		t.Errorf("got %v, want fallback 1s", got)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for name, want := range tests {
		if got := (Config{LogLevel: name}).SlogLevel(); got != want {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
	}
}
