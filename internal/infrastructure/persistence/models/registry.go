package models

import (
	"time"

	"github.com/clinic/backend/internal/domain/registry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The registry tables are owned by other subsystems. These models are read-only
// views used to validate references and to read catalog prices.

// PatientModel maps a patients row
type PatientModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	FullName  string    `gorm:"type:varchar(200);not null"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (PatientModel) TableName() string { return "patients" }

// ToDomain converts the row to a registry Patient
func (m *PatientModel) ToDomain() *registry.Patient {
	return &registry.Patient{ID: m.ID, TenantID: m.TenantID, FullName: m.FullName}
}

// VisitModel maps a visits row
type VisitModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	PatientID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	EmployeeID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time
}

// TableName returns the table name for GORM
func (VisitModel) TableName() string { return "visits" }

// ToDomain converts the row to a registry Visit
func (m *VisitModel) ToDomain() *registry.Visit {
	return &registry.Visit{ID: m.ID, TenantID: m.TenantID, PatientID: m.PatientID, EmployeeID: m.EmployeeID}
}

// EmployeeModel maps an employees row
type EmployeeModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	FullName  string    `gorm:"type:varchar(200);not null"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (EmployeeModel) TableName() string { return "employees" }

// ToDomain converts the row to a registry Employee
func (m *EmployeeModel) ToDomain() *registry.Employee {
	return &registry.Employee{ID: m.ID, TenantID: m.TenantID, FullName: m.FullName}
}

// ServiceModel maps a services catalog row. A NULL price means the
// price must be given on every invoice line.
type ServiceModel struct {
	ID           uuid.UUID        `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	Name         string           `gorm:"type:varchar(200);not null"`
	Price        *decimal.Decimal `gorm:"type:decimal(18,4)"`
	DepartmentID *uuid.UUID       `gorm:"type:uuid"`
	IsActive     bool             `gorm:"not null;default:true"`
	CreatedAt    time.Time
}

// TableName returns the table name for GORM
func (ServiceModel) TableName() string { return "services" }

// ToDomain converts the row to a registry Service
func (m *ServiceModel) ToDomain() *registry.Service {
	return &registry.Service{
		ID:           m.ID,
		TenantID:     m.TenantID,
		Name:         m.Name,
		Price:        m.Price,
		DepartmentID: m.DepartmentID,
		IsActive:     m.IsActive,
	}
}

// DepartmentModel maps a departments row
type DepartmentModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(200);not null"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (DepartmentModel) TableName() string { return "departments" }

// ToDomain converts the row to a registry Department
func (m *DepartmentModel) ToDomain() *registry.Department {
	return &registry.Department{ID: m.ID, TenantID: m.TenantID, Name: m.Name}
}
