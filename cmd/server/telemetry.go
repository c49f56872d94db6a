package main

import (
	"context"

	"github.com/clinic/backend/internal/infrastructure/config"
	"github.com/clinic/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// telemetryProviders holds the OpenTelemetry and Pyroscope providers
type telemetryProviders struct {
	tracer   *telemetry.TracerProvider
	meter    *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

// initTelemetry starts every provider. A provider that fails to start is
// logged and replaced by its disabled form so the server still comes up.
func initTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) *telemetryProviders {
	t := cfg.Telemetry
	providers := &telemetryProviders{}
	var err error

	providers.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           t.Enabled,
		CollectorEndpoint: t.CollectorEndpoint,
		SamplingRatio:     t.SamplingRatio,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Error("Failed to initialize tracing, continuing without it", zap.Error(err))
		providers.tracer, _ = telemetry.NewTracerProvider(ctx, telemetry.Config{}, log)
	}

	providers.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           t.Enabled && t.MetricsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ExportInterval:    t.MetricsInterval,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Error("Failed to initialize metrics, continuing without them", zap.Error(err))
		providers.meter, _ = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, log)
	}

	providers.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           t.Enabled && t.LogsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Error("Failed to initialize OTEL logs, continuing without them", zap.Error(err))
		providers.logs = nil
	}

	providers.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         t.ProfilingEnabled,
		ServerAddress:   t.ProfilingEndpoint,
		ApplicationName: t.ServiceName,
		ProfileTypes:    []string{"cpu", "alloc_space", "inuse_space", "goroutines"},
	}, log)
	if err != nil {
		log.Error("Failed to start profiler, continuing without it", zap.Error(err))
		providers.profiler, _ = telemetry.NewProfiler(telemetry.ProfilerConfig{}, log)
	}

	if providers.profiler.IsEnabled() && providers.tracer.IsEnabled() {
		if err := providers.tracer.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to link span profiles", zap.Error(err))
		}
	}

	return providers
}

// shutdown flushes and stops the providers in reverse start order
func (p *telemetryProviders) shutdown(log *zap.Logger) {
	ctx := context.Background()
	if err := p.profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			log.Error("Error shutting down logs provider", zap.Error(err))
		}
	}
	if err := p.meter.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := p.tracer.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
}
