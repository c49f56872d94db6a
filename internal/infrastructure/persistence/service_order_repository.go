package persistence

import (
	"context"
	"errors"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errServiceOrderConflict = shared.NewDomainError(shared.CodeConcurrencyConflict, "Service order was modified by another request, reload and retry")

// GormServiceOrderRepository implements ServiceOrderRepository using GORM
type GormServiceOrderRepository struct {
	db *gorm.DB
}

// NewGormServiceOrderRepository creates a new GormServiceOrderRepository
func NewGormServiceOrderRepository(db *gorm.DB) *GormServiceOrderRepository {
	return &GormServiceOrderRepository{db: db}
}

// FindByIDForTenant finds a service order by ID within a tenant
func (r *GormServiceOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*clinical.ServiceOrder, error) {
	var model models.ServiceOrderModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("service order", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForTenant finds service orders by IDs within a tenant
func (r *GormServiceOrderRepository) FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]clinical.ServiceOrder, error) {
	if len(ids) == 0 {
		return []clinical.ServiceOrder{}, nil
	}
	var rows []models.ServiceOrderModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return serviceOrdersToDomain(rows), nil
}

// FindByDepartmentAndDay returns the department's admitted orders of the day in queue order
func (r *GormServiceOrderRepository) FindByDepartmentAndDay(ctx context.Context, tenantID, departmentID uuid.UUID, day string) ([]clinical.ServiceOrder, error) {
	var rows []models.ServiceOrderModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND department_id = ? AND queue_date = ?", tenantID, departmentID, day).
		Where("queue_number IS NOT NULL").
		Order("queue_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return serviceOrdersToDomain(rows), nil
}

func serviceOrdersToDomain(rows []models.ServiceOrderModel) []clinical.ServiceOrder {
	orders := make([]clinical.ServiceOrder, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders
}

// Create inserts a service order
func (r *GormServiceOrderRepository) Create(ctx context.Context, order *clinical.ServiceOrder) error {
	return r.db.WithContext(ctx).Create(models.ServiceOrderModelFromDomain(order)).Error
}

// Update saves every mutable column when the stored row still carries the
// version the order was loaded with (Version-1 after one mutation)
func (r *GormServiceOrderRepository) Update(ctx context.Context, order *clinical.ServiceOrder) error {
	model := models.ServiceOrderModelFromDomain(order)
	result := r.db.WithContext(ctx).
		Model(&models.ServiceOrderModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", order.TenantID, order.ID, order.Version-1).
		Select("*").
		Omit("id", "tenant_id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errServiceOrderConflict
	}
	return nil
}

// DeleteForTenant hard-deletes service orders by id
func (r *GormServiceOrderRepository) DeleteForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Delete(&models.ServiceOrderModel{}).Error
}

// NextQueueNumber allocates the next queue number of the department's day
func (r *GormServiceOrderRepository) NextQueueNumber(ctx context.Context, tenantID, departmentID uuid.UUID, day shared.DayWindow) (int, error) {
	key := day.Key()
	seed := func(db *gorm.DB) (int, error) {
		var highest int
		err := db.Model(&models.ServiceOrderModel{}).
			Select("COALESCE(MAX(queue_number), 0)").
			Where("tenant_id = ? AND department_id = ? AND queue_date = ?", tenantID, departmentID, key).
			Scan(&highest).Error
		return highest, err
	}
	return nextSequenceValue(ctx, r.db, tenantID, queueCounterScope(departmentID), key, seed)
}

func queueCounterScope(departmentID uuid.UUID) string {
	return "queue:" + departmentID.String()
}

// Ensure GormServiceOrderRepository implements ServiceOrderRepository
var _ clinical.ServiceOrderRepository = (*GormServiceOrderRepository)(nil)
