package queue

import (
	"context"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BoardInvalidationHandler drops the cached board of a department day
// whenever one of its orders is admitted or changes queue status.
type BoardInvalidationHandler struct {
	cache  BoardCache
	logger *zap.Logger
}

// NewBoardInvalidationHandler creates a handler over cache.
func NewBoardInvalidationHandler(cache BoardCache, logger *zap.Logger) *BoardInvalidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardInvalidationHandler{cache: cache, logger: logger}
}

// EventTypes implements shared.EventHandler.
func (h *BoardInvalidationHandler) EventTypes() []string {
	return clinical.QueueEventTypes
}

// Handle implements shared.EventHandler.
func (h *BoardInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*clinical.QueueEvent)
	if !ok || e.QueueDate == "" {
		return nil
	}
	key := BoardKey{TenantID: e.TenantID(), DepartmentID: e.DepartmentID, Day: e.QueueDate}
	if err := h.cache.Invalidate(ctx, key); err != nil {
		h.logger.Warn("Failed to invalidate queue board cache",
			zap.String("board", key.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

var _ shared.EventHandler = (*BoardInvalidationHandler)(nil)
