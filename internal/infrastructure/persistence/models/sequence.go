package models

import (
	"time"

	"github.com/google/uuid"
)

// SequenceCounterModel holds the last number handed out for one
// (tenant, scope, period). Scopes are "invoice" and "queue:<departmentId>";
// the period is a YYYY-MM-DD day.
type SequenceCounterModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Scope     string    `gorm:"type:varchar(80);primaryKey"`
	Period    string    `gorm:"type:varchar(10);primaryKey"`
	LastValue int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SequenceCounterModel) TableName() string {
	return "sequence_counters"
}
