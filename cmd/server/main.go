package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	eventapp "github.com/erp/warehouse/internal/application/event"
	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/infrastructure/auth"
	"github.com/erp/warehouse/internal/infrastructure/cache"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/erp/warehouse/internal/infrastructure/event"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/erp/warehouse/internal/interfaces/http/handler"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/erp/warehouse/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting warehouse ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry: traces, metrics, exported logs and continuous profiling
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	log = telemetry.BridgeLogger(log, loggerProvider, logger.ParseLevel(cfg.Telemetry.LogsMinLevel))

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		Memory:          cfg.Telemetry.ProfilingMemory,
	}, log)
	if err != nil {
		return err
	}
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := profiler.Stop(); err != nil {
			log.Warn("Error stopping profiler", zap.Error(err))
		}
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = tracerProvider.Shutdown(shutdownCtx)
		_ = loggerProvider.Shutdown(shutdownCtx)
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == "sqlite" {
		// postgres schemas come from cmd/migrate
		if err := db.AutoMigrate(); err != nil {
			return err
		}
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	if cfg.Database.Driver == "sqlite" {
		dbTracing.DBSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).RegisterOtelGorm(db.DB); err != nil {
		return err
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(ctx, db.DB, meterProvider, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.MetricsEnabled && cfg.Telemetry.DBMetricsEnabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		return err
	}
	if dbMetrics != nil {
		defer dbMetrics.Stop()
	}

	// Locks, idempotency and token revocation
	coord, err := cache.NewCoordination(ctx, cfg.Redis, cfg.Ledger, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := coord.Close(); err != nil {
			log.Warn("Error closing coordination backend", zap.Error(err))
		}
	}()

	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		blacklistClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = blacklistClient.Close() }()
		blacklist = auth.NewRedisTokenBlacklist(blacklistClient, "")
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	// Events: outbox written inside ledger transactions, relayed to the bus
	serializer := event.NewLedgerSerializer()
	outboxPublisher := event.NewOutboxPublisher(serializer).WithMaxRetries(cfg.Ledger.OutboxMaxRetries)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewIdempotentHandler("ledger_audit", event.NewLedgerAuditHandler(log), coord.Idempotency, log))
	if err := bus.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = bus.Stop(context.Background()) }()

	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Ledger.OutboxBatchSize,
		PollInterval:     cfg.Ledger.OutboxPollInterval,
		CleanupEnabled:   cfg.Ledger.OutboxRetention > 0,
		CleanupRetention: cfg.Ledger.OutboxRetention,
	}, log)

	// Application services
	deps := inventoryapp.Dependencies{
		TxScope:         persistence.NewGormTransactionScope(db.DB, outboxPublisher),
		Items:           persistence.NewGormStockItemRepository(db.DB),
		Movements:       persistence.NewGormStockMovementRepository(db.DB),
		Counts:          persistence.NewGormInventoryCountRepository(db.DB),
		Locker:          coord.Locker,
		Idempotency:     coord.Idempotency,
		Logger:          log,
		IdempotencyTTL:  cfg.Ledger.IdempotencyTTL,
		DefaultCurrency: cfg.Ledger.DefaultCurrency,
	}
	ledgerService := inventoryapp.NewLedgerService(deps)
	countService := inventoryapp.NewCountService(deps)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:    meterProvider.Meter("warehouse-ledger/ledger"),
		Logger:   log,
		Provider: telemetry.NewGormLedgerStateProvider(db.DB),
	})
	if err != nil {
		return err
	}
	ledgerService.SetLedgerMetrics(ledgerMetrics)
	countService.SetLedgerMetrics(ledgerMetrics)
	if meterProvider.IsEnabled() {
		ledgerMetrics.StartPeriodicCollection(ctx, cfg.Ledger.MetricsCollectPeriod)
		defer ledgerMetrics.Stop()
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		return err
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitQPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitQPS, cfg.HTTP.RateLimitBurst)
		log.Info("Rate limiting enabled",
			zap.Float64("qps", cfg.HTTP.RateLimitQPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
		)
	}

	handlers := router.Handlers{
		Stock:     handler.NewStockHandler(ledgerService),
		Valuation: handler.NewValuationHandler(ledgerService),
		Counts:    handler.NewInventoryCountHandler(countService),
		Outbox:    handler.NewOutboxHandler(outboxService),
		Auth:      handler.NewAuthHandler(blacklist),
		System: handler.NewSystemHandler(cfg.App.Name, cfg.App.Version,
			handler.HealthCheck{Name: "database", Check: func(context.Context) error { return db.Ping() }},
			handler.HealthCheck{Name: "coordination", Check: coord.Ping},
		),
	}
	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Logger:      log,
		Auth: middleware.AuthConfig{
			JWTService:     auth.NewJWTService(cfg.JWT),
			TokenBlacklist: blacklist,
			DevHeaders:     cfg.JWT.DevHeaders,
			Logger:         log,
		},
		Security:       middleware.DefaultSecurityConfig(),
		TracingEnabled: cfg.Telemetry.Enabled,
		Profiling:      profiler.IsEnabled(),
		Meter:          meterProvider,
		MaxBodyBytes:   cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		RateLimiter:    limiter,
	}, handlers)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           engine,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return processor.Run(gctx)
	})
	if limiter != nil {
		g.Go(func() error {
			limiter.RunSweeper(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
