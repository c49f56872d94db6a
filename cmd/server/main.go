package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbilling "github.com/clinic/backend/internal/application/billing"
	appqueue "github.com/clinic/backend/internal/application/queue"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/shared/valueobject"
	"github.com/clinic/backend/internal/infrastructure/cache"
	"github.com/clinic/backend/internal/infrastructure/config"
	"github.com/clinic/backend/internal/infrastructure/event"
	"github.com/clinic/backend/internal/infrastructure/logger"
	"github.com/clinic/backend/internal/infrastructure/persistence"
	"github.com/clinic/backend/internal/infrastructure/storage"
	"github.com/clinic/backend/internal/infrastructure/telemetry"
	"github.com/clinic/backend/internal/interfaces/http/handler"
	"github.com/clinic/backend/internal/interfaces/http/middleware"
	"github.com/clinic/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const queueMetricsInterval = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(baseLog)
	}()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	providers := initTelemetry(ctx, cfg, baseLog)
	log := telemetry.BridgeLogger(baseLog, providers.logs, cfg.Telemetry.ServiceName, zapcore.InfoLevel)
	defer providers.shutdown(log)

	log.Info("Starting clinic backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("queue_timezone", cfg.Queue.Timezone),
		zap.String("currency", cfg.Billing.Currency),
	)

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	clock := shared.NewSystemClock(cfg.Queue.Location())
	currency := valueobject.Currency(cfg.Billing.Currency)
	invoicePrefix := persistence.WithInvoiceNumberPrefix(cfg.Billing.InvoiceNumberPrefix)

	// Initialize repositories
	directory := persistence.NewGormDirectory(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB, invoicePrefix)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	orderRepo := persistence.NewGormServiceOrderRepository(db.DB)
	failureRepo := persistence.NewGormAdmissionFailureRepository(db.DB)
	billingTx := persistence.NewGormBillingTransactionScope(db.DB, invoicePrefix)
	queueTx := persistence.NewGormQueueTransactionScope(db.DB)

	// Idempotency keys and queue boards
	stores, err := cache.NewStoreFactory(cfg.Redis, cfg.Queue.BoardCacheTTL, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing stores", zap.Error(err))
		}
	}()

	resultStorage, storageCheck := initResultStorage(ctx, cfg, log)

	// Business metrics
	metrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:         providers.meter.Meter("clinic-backend/business"),
		Logger:        log,
		QueueProvider: persistence.NewGormQueueMetricsProvider(db.DB, clock),
	})
	if err != nil {
		log.Fatal("Failed to initialize business metrics", zap.Error(err))
	}
	if providers.meter.IsEnabled() {
		metrics.StartPeriodicCollection(ctx, queueMetricsInterval)
	}
	defer metrics.Stop()

	// Event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)
	boardInvalidation := appqueue.NewBoardInvalidationHandler(stores.Boards, log)
	eventBus.Subscribe(boardInvalidation, boardInvalidation.EventTypes()...)
	eventLog := event.NewLogHandler(log)
	eventBus.Subscribe(eventLog, eventLog.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		_ = eventBus.Stop(context.Background())
	}()

	// Initialize application services
	queueService := appqueue.NewService(appqueue.ServiceConfig{
		OrderRepo:       orderRepo,
		TxScope:         queueTx,
		Directory:       directory,
		Clock:           clock,
		Cache:           stores.Boards,
		Storage:         resultStorage,
		Events:          eventBus,
		Metrics:         metrics,
		Logger:          log,
		UploadURLExpiry: cfg.Storage.PresignExpiration,
	})
	invoiceService := appbilling.NewInvoiceService(appbilling.InvoiceServiceConfig{
		InvoiceRepo: invoiceRepo,
		OrderRepo:   orderRepo,
		TxScope:     billingTx,
		Directory:   directory,
		Clock:       clock,
		Events:      eventBus,
		Metrics:     metrics,
		Logger:      log,
		Currency:    currency,
	})
	paymentService := appbilling.NewPaymentService(appbilling.PaymentServiceConfig{
		InvoiceRepo:    invoiceRepo,
		PaymentRepo:    paymentRepo,
		FailureRepo:    failureRepo,
		TxScope:        billingTx,
		Queue:          queueService,
		Directory:      directory,
		Clock:          clock,
		Idempotency:    stores.Idempotency,
		IdempotencyTTL: cfg.Billing.IdempotencyTTL,
		Events:         eventBus,
		Metrics:        metrics,
		Logger:         log,
	})

	// Health checks
	health := handler.NewHealthHandler(db.Ping).
		WithCheck("redis", stores.Ping)
	if storageCheck != nil {
		health = health.WithCheck("storage", storageCheck)
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine := router.NewEngine(router.EngineConfig{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Meter:     providers.meter.Meter("clinic-backend/http"),
		Profiling: middleware.ProfilingConfig{Enabled: cfg.Telemetry.ProfilingEnabled, SkipPaths: middleware.DefaultProfilingConfig().SkipPaths},
		CORS:      corsCfg,
		BodyLimit: cfg.HTTP.MaxBodySize,
		Health:    health,
		Handlers: router.Handlers{
			Invoices: handler.NewInvoiceHandler(invoiceService),
			Payments: handler.NewPaymentHandler(paymentService),
			Queue:    handler.NewQueueHandler(queueService),
		},
	})
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// initResultStorage returns the S3 store when storage is enabled and the
// stub store otherwise. The check is nil for the stub.
func initResultStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (appqueue.ResultStorage, handler.HealthCheck) {
	if !cfg.Storage.Enabled {
		log.Info("Object storage disabled, result links point at the stub store")
		return storage.NewStubResultStorage("http://localhost:" + cfg.App.Port + "/results"), nil
	}

	s3Store, err := storage.NewS3ResultStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	// Self-hosted endpoints (MinIO and friends) start without the bucket
	if cfg.Storage.Endpoint != "" {
		if err := s3Store.EnsureBucket(ctx); err != nil {
			log.Warn("Failed to ensure result bucket", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
	}
	log.Info("Object storage enabled", zap.String("bucket", cfg.Storage.Bucket))
	return s3Store, s3Store.Check
}
