package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bibbank/microloan/internal/infrastructure/config"
	"github.com/bibbank/microloan/internal/infrastructure/indexer"
	pgRepo "github.com/bibbank/microloan/internal/infrastructure/persistence/postgres"
	"github.com/bibbank/microloan/internal/presentation/rest"
	pkgkafka "github.com/bibbank/microloan/pkg/kafka"
	"github.com/bibbank/microloan/pkg/observability"
	pkgpostgres "github.com/bibbank/microloan/pkg/postgres"
)

const serviceName = "microloan-indexer"

func main() {
	if err := run(); err != nil {
		slog.Error("indexer exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	cfg.ServiceName = serviceName
	cfg.DB.AppName = serviceName

	logger := observability.InitLogger(cfg.Telemetry.Logging())
	slog.SetDefault(logger)

	// The indexer has no ledger of its own; it always writes to Postgres.
	if cfg.DB.Password == "" {
		return errors.New("DB_PASSWORD environment variable is required")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}

	shutdownTracer, err := observability.InitTracer(ctx, cfg.Telemetry.Tracing(serviceName))
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }() //nolint:errcheck // best-effort tracer shutdown
	}

	mux := http.NewServeMux()
	if cfg.Telemetry.MetricsEnable {
		shutdownMetrics, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: serviceName})
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer func() { _ = shutdownMetrics(context.Background()) }() //nolint:errcheck // best-effort meter shutdown
		mux.Handle("/metrics", metricsHandler)
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()

	pgCfg := cfg.DB.Postgres()
	pool, err := pkgpostgres.NewPool(dbCtx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pkgpostgres.RunMigrationsFS(pgCfg.DSN(), pgRepo.Migrations, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := indexer.NewPostgresStore(pool)
	consumer, err := pkgkafka.NewConsumer(cfg.Kafka.Client(), cfg.Kafka.Topic, indexer.Handler(store, logger), logger)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	defer consumer.Close()

	rest.NewHealthHandler(serviceName, map[string]rest.Check{
		"postgres": func(ctx context.Context) error { return pkgpostgres.HealthCheck(ctx, pool) },
	}, logger).RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()
	go func() {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("indexer error", "error", runErr)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("indexer stopped")
	return runErr
}
