package router

import (
	"github.com/clinic/backend/internal/infrastructure/logger"
	"github.com/clinic/backend/internal/interfaces/http/handler"
	"github.com/clinic/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig wires the global middleware chain
type EngineConfig struct {
	Logger    *zap.Logger
	Tracing   middleware.TracingConfig
	Meter     metric.Meter
	Profiling middleware.ProfilingConfig
	CORS      middleware.CORSConfig
	BodyLimit int64
	Health    *handler.HealthHandler
	Handlers  Handlers
}

// NewEngine builds the gin engine: recovery, request ID, tracing, access
// log, metrics, profiling, CORS and body limit apply to every request;
// tenant resolution applies to /api/v1 only.
func NewEngine(cfg EngineConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = middleware.DefaultBodyLimit
	}

	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(logger.Recovery(log), middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Tracing)...)
	engine.Use(
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(cfg.Meter),
		middleware.Profiling(cfg.Profiling),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.BodyLimit(bodyLimit),
	)

	if cfg.Health != nil {
		engine.GET("/health", cfg.Health.Health)
	}

	NewRouter(engine, WithAPIMiddleware(middleware.Tenant())).
		Register(ClinicRoutes(cfg.Handlers)...).
		Setup()

	return engine
}
