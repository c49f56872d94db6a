package persistence

import (
	"context"
	"time"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAdmissionFailureRepository implements AdmissionFailureRepository using GORM
type GormAdmissionFailureRepository struct {
	db *gorm.DB
}

// NewGormAdmissionFailureRepository creates a new GormAdmissionFailureRepository
func NewGormAdmissionFailureRepository(db *gorm.DB) *GormAdmissionFailureRepository {
	return &GormAdmissionFailureRepository{db: db}
}

// Record inserts a failure
func (r *GormAdmissionFailureRepository) Record(ctx context.Context, failure *clinical.AdmissionFailure) error {
	return r.db.WithContext(ctx).Create(models.AdmissionFailureModelFromDomain(failure)).Error
}

// FindOpenByInvoice lists unresolved failures of an invoice, oldest first
func (r *GormAdmissionFailureRepository) FindOpenByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]clinical.AdmissionFailure, error) {
	var rows []models.AdmissionFailureModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ? AND resolved_at IS NULL", tenantID, invoiceID).
		Order("occurred_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	failures := make([]clinical.AdmissionFailure, len(rows))
	for i := range rows {
		failures[i] = *rows[i].ToDomain()
	}
	return failures, nil
}

// MarkResolved closes every open failure of the order
func (r *GormAdmissionFailureRepository) MarkResolved(ctx context.Context, tenantID, serviceOrderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AdmissionFailureModel{}).
		Where("tenant_id = ? AND service_order_id = ? AND resolved_at IS NULL", tenantID, serviceOrderID).
		Update("resolved_at", at).Error
}

// Ensure GormAdmissionFailureRepository implements AdmissionFailureRepository
var _ clinical.AdmissionFailureRepository = (*GormAdmissionFailureRepository)(nil)
