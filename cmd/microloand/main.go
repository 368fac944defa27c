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

	"github.com/bibbank/microloan/internal/application/usecase"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/internal/domain/service"
	"github.com/bibbank/microloan/internal/infrastructure/config"
	"github.com/bibbank/microloan/internal/infrastructure/kafka"
	"github.com/bibbank/microloan/internal/infrastructure/persistence/memory"
	pgRepo "github.com/bibbank/microloan/internal/infrastructure/persistence/postgres"
	grpcPresentation "github.com/bibbank/microloan/internal/presentation/grpc"
	"github.com/bibbank/microloan/internal/presentation/rest"
	"github.com/bibbank/microloan/pkg/auth"
	pkgkafka "github.com/bibbank/microloan/pkg/kafka"
	"github.com/bibbank/microloan/pkg/observability"
	pkgpostgres "github.com/bibbank/microloan/pkg/postgres"
	"github.com/bibbank/microloan/pkg/tlsutil"
)

func main() {
	if err := run(); err != nil {
		slog.Error("microloand exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	logger := observability.InitLogger(cfg.Telemetry.Logging())
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("starting microloand",
		"grpc_port", cfg.GRPCPort,
		"http_port", cfg.HTTPPort,
		"backend", cfg.Backend,
	)

	shutdownTracer, err := observability.InitTracer(ctx, cfg.Telemetry.Tracing(cfg.ServiceName))
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }() //nolint:errcheck // best-effort tracer shutdown
	}

	mux := http.NewServeMux()
	if cfg.Telemetry.MetricsEnable {
		shutdownMetrics, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer func() { _ = shutdownMetrics(context.Background()) }() //nolint:errcheck // best-effort meter shutdown
		mux.Handle("/metrics", metricsHandler)
	}

	// --- Ledger -------------------------------------------------------------
	var (
		ledger port.Ledger
		outbox port.OutboxRepository
		checks = map[string]rest.Check{}
	)
	switch cfg.Backend {
	case config.BackendMemory:
		mem := memory.NewLedger()
		ledger, outbox = mem, mem
		logger.Warn("using in-memory ledger, state is lost on restart")
	default:
		dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
		defer dbCancel()

		pgCfg := cfg.DB.Postgres()
		pool, err := pkgpostgres.NewPool(dbCtx, pgCfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		logger.Info("connected to database")

		if err := pkgpostgres.RunMigrationsFS(pgCfg.DSN(), pgRepo.Migrations, "migrations"); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		ledger, outbox = pgRepo.NewLedger(pool), pgRepo.NewOutboxRepo(pool)
		checks["postgres"] = func(ctx context.Context) error { return pkgpostgres.HealthCheck(ctx, pool) }
	}

	// --- Event relay --------------------------------------------------------
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := pkgkafka.NewProducer(cfg.Kafka.Client())
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer producer.Close()

		publisher := kafka.NewEventPublisher(producer, cfg.Kafka.Topic, logger)
		relay := usecase.NewRelayOutboxUseCase(outbox, publisher, cfg.Outbox.BatchSize, logger)
		go relay.Run(ctx, cfg.Outbox.Interval)
		logger.Info("outbox relay started", "topic", cfg.Kafka.Topic, "interval", cfg.Outbox.Interval)
	}

	// --- Use cases ----------------------------------------------------------
	lifecycle := service.NewLifecycle(cfg.Policy)
	clock := port.SystemClock
	useCases := grpcPresentation.UseCases{
		Initialize:        usecase.NewInitializeProgramUseCase(ledger, lifecycle, clock),
		SetPaused:         usecase.NewSetPausedUseCase(ledger, lifecycle, clock),
		RegisterUser:      usecase.NewRegisterUserUseCase(ledger, lifecycle, clock),
		UpdateUserProfile: usecase.NewUpdateUserProfileUseCase(ledger, lifecycle, clock),
		CreateLoan:        usecase.NewCreateLoanUseCase(ledger, lifecycle, clock),
		RecordPayment:     usecase.NewRecordPaymentUseCase(ledger, lifecycle, clock),
		MarkDefaulted:     usecase.NewMarkLoanDefaultedUseCase(ledger, lifecycle, clock),
		MarkCompleted:     usecase.NewMarkLoanCompletedUseCase(ledger, lifecycle, clock),
		WaiveFine:         usecase.NewWaiveFineUseCase(ledger, lifecycle, clock),
		UpdateRiskScore:   usecase.NewUpdateRiskScoreUseCase(ledger, lifecycle, clock),

		GetCreditScore:   usecase.NewGetCreditScoreUseCase(ledger, service.NewCreditEngine(cfg.Policy)),
		GetProgramState:  usecase.NewGetProgramStateUseCase(ledger),
		GetUserProfile:   usecase.NewGetUserProfileUseCase(ledger),
		GetLoan:          usecase.NewGetLoanUseCase(ledger),
		GetPaymentRecord: usecase.NewGetPaymentRecordUseCase(ledger),
		GetRiskProfile:   usecase.NewGetRiskProfileUseCase(ledger),
		GetSchedule:      usecase.NewGetAmortizationScheduleUseCase(ledger),
	}

	// --- gRPC server --------------------------------------------------------
	jwtCfg, err := cfg.Auth.JWT()
	if err != nil {
		return fmt.Errorf("load JWT key: %w", err)
	}
	jwtSvc, err := auth.NewJWTService(jwtCfg)
	if err != nil {
		return fmt.Errorf("initialize JWT service: %w", err)
	}

	opts := grpcPresentation.ServerOptions{Reflection: cfg.Reflection}
	if cfg.TLS.Enabled() {
		opts.Creds, err = tlsutil.ServerCredentials(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.ClientCAFile)
		if err != nil {
			return fmt.Errorf("load TLS credentials: %w", err)
		}
	}

	handler := grpcPresentation.NewMicroLoanHandler(useCases, logger)
	grpcServer, err := grpcPresentation.NewServer(handler, jwtSvc, logger, opts)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	// --- HTTP server (health, metrics) --------------------------------------
	rest.NewHealthHandler(cfg.ServiceName, checks, logger).RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
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
		logger.Error("server error", "error", runErr)
	}
	cancel()

	// --- Graceful shutdown --------------------------------------------------
	grpcServer.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("microloand stopped")
	return runErr
}
