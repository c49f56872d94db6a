package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/clinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sequenceSeed returns the highest number already issued for a counter that
// has no row yet, so a counter created on a populated table continues from it.
type sequenceSeed func(db *gorm.DB) (int, error)

// nextSequenceValue allocates the next number of (tenant, scope, period).
//
// The counter row is created on first use and then locked FOR UPDATE, so
// concurrent callers serialize on it until their transaction ends. Numbers
// are gap-free: a rolled-back transaction also rolls back its increment.
// Must be called with a transaction handle.
func nextSequenceValue(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, scope, period string, seed sequenceSeed) (int, error) {
	db := tx.WithContext(ctx)
	where := "tenant_id = ? AND scope = ? AND period = ?"

	start, err := seed(db)
	if err != nil {
		return 0, fmt.Errorf("failed to seed %s counter: %w", scope, err)
	}
	now := time.Now().UTC()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.SequenceCounterModel{
		TenantID:  tenantID,
		Scope:     scope,
		Period:    period,
		LastValue: start,
		UpdatedAt: now,
	}).Error; err != nil {
		return 0, fmt.Errorf("failed to create %s counter: %w", scope, err)
	}

	var counter models.SequenceCounterModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(where, tenantID, scope, period).
		Take(&counter).Error; err != nil {
		return 0, fmt.Errorf("failed to lock %s counter: %w", scope, err)
	}

	next := counter.LastValue + 1
	if err := db.Model(&models.SequenceCounterModel{}).
		Where(where, tenantID, scope, period).
		Updates(map[string]any{
			"last_value": next,
			"updated_at": now,
		}).Error; err != nil {
		return 0, fmt.Errorf("failed to advance %s counter: %w", scope, err)
	}
	return next, nil
}
