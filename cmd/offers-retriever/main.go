package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ryanbastic/offers-retriever/internal/api"
	"github.com/ryanbastic/offers-retriever/internal/circuitbreaker"
	"github.com/ryanbastic/offers-retriever/internal/config"
	"github.com/ryanbastic/offers-retriever/internal/ledger"
	"github.com/ryanbastic/offers-retriever/internal/ledger/clickhouse"
	ledgerpg "github.com/ryanbastic/offers-retriever/internal/ledger/postgres"
	"github.com/ryanbastic/offers-retriever/internal/metrics"
	"github.com/ryanbastic/offers-retriever/internal/retriever"
	"github.com/ryanbastic/offers-retriever/internal/storage"
)

// ledgerBackend is a row reader that can also report its health.
type ledgerBackend interface {
	ledger.RowReader
	api.Pinger
}

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Offers store
	pool, err := connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to offers database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to offers database")

	if cfg.RunMigrations {
		if err := storage.RunMigrations(ctx, pool, storage.OffersTable); err != nil {
			logger.Error("failed to run offers migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("offers migrations complete", "table", storage.OffersTable)
	}
	store := storage.NewPostgresStore(pool, storage.OffersTable, cfg.QueryTimeout)

	pools := map[string]*pgxpool.Pool{"offers": pool}

	// Price ledger
	var reader ledgerBackend
	switch cfg.LedgerBackend {
	case config.LedgerPostgres:
		ledgerPool := pool
		if cfg.LedgerDatabaseURL != cfg.DatabaseURL {
			ledgerPool, err = connect(ctx, cfg.LedgerDatabaseURL)
			if err != nil {
				logger.Error("failed to connect to ledger database", "error", err)
				os.Exit(1)
			}
			defer ledgerPool.Close()
			pools["ledger"] = ledgerPool
		}
		if cfg.RunMigrations {
			if err := ledgerpg.RunMigrations(ctx, ledgerPool, cfg.LedgerShards); err != nil {
				logger.Error("failed to run ledger migrations", "error", err)
				os.Exit(1)
			}
		}
		reader = ledgerpg.NewShardedReader(ledgerPool, cfg.LedgerShards, cfg.QueryTimeout)

	case config.LedgerClickHouse:
		if cfg.ClickHouseDSN == "" {
			logger.Error("CLICKHOUSE_DSN is required for the clickhouse ledger backend")
			os.Exit(1)
		}
		conn, err := clickhouse.NewConn(ctx, cfg.ClickHouseDSN)
		if err != nil {
			logger.Error("failed to connect to clickhouse", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		table := clickhouse.NewTable(conn, clickhouse.DefaultTable, cfg.QueryTimeout)
		if cfg.RunMigrations {
			if err := table.CreateTable(ctx); err != nil {
				logger.Error("failed to create ledger table", "error", err)
				os.Exit(1)
			}
		}
		reader = table

	default:
		logger.Error("unknown ledger backend", "backend", cfg.LedgerBackend)
		os.Exit(1)
	}
	logger.Info("price ledger ready", "backend", cfg.LedgerBackend, "shards", cfg.LedgerShards)

	breaker := circuitbreaker.New(cfg.BreakerMaxFailures, cfg.BreakerResetTimeout,
		circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
			metrics.SetLedgerBreakerState(int(to))
			logger.Warn("ledger circuit breaker changed state", "from", from.String(), "to", to.String())
		}),
	)
	lookup := ledger.NewLookup(reader, breaker, logger)

	svc := retriever.NewService(store, lookup, retriever.Config{
		PageSize:            cfg.PageSize,
		UnverifiedPartition: cfg.UnverifiedPartition,
	}, logger)

	prometheus.MustRegister(metrics.NewPoolCollector(pools))

	// Start HTTP server
	handler := api.NewServer(logger, svc, api.Options{
		StrictAddresses: cfg.StrictAddresses,
		Backends: map[string]api.Pinger{
			"offers": pool,
			"ledger": reader,
		},
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
