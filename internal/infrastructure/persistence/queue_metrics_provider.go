package persistence

import (
	"context"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/infrastructure/persistence/models"
	"github.com/clinic/backend/internal/infrastructure/telemetry"
	"gorm.io/gorm"
)

// GormQueueMetricsProvider reads today's waiting patients for the queue gauges
type GormQueueMetricsProvider struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewGormQueueMetricsProvider creates a new GormQueueMetricsProvider
func NewGormQueueMetricsProvider(db *gorm.DB, clock shared.Clock) *GormQueueMetricsProvider {
	return &GormQueueMetricsProvider{db: db, clock: clock}
}

// WaitingCounts groups today's WAITING orders by tenant and department
func (p *GormQueueMetricsProvider) WaitingCounts(ctx context.Context) ([]telemetry.WaitingCount, error) {
	today := shared.DayOf(p.clock.Now(), p.clock.Location()).Key()

	var counts []telemetry.WaitingCount
	err := p.db.WithContext(ctx).
		Model(&models.ServiceOrderModel{}).
		Select("tenant_id, department_id, COUNT(*) AS waiting").
		Where("queue_date = ? AND queue_status = ? AND department_id IS NOT NULL", today, string(clinical.QueueStatusWaiting)).
		Group("tenant_id, department_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Ensure GormQueueMetricsProvider implements QueueMetricsProvider
var _ telemetry.QueueMetricsProvider = (*GormQueueMetricsProvider)(nil)
