package event

import (
	"context"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogHandler writes every domain event to the structured log so invoice and
// queue history can be traced per tenant.
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler creates a wildcard handler logging to logger
func NewLogHandler(l *zap.Logger) *LogHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogHandler{logger: l}
}

// EventTypes returns nil: the handler receives all events
func (h *LogHandler) EventTypes() []string {
	return nil
}

// Handle logs event with the request fields carried by ctx
func (h *LogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := append(logger.ContextFields(ctx),
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("event_tenant_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	h.logger.Info("Domain event", fields...)
	return nil
}

var _ shared.EventHandler = (*LogHandler)(nil)
