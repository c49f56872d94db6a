package persistence

import (
	"context"
	"errors"

	"github.com/clinic/backend/internal/domain/registry"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDirectory reads patients, visits, staff, services and departments
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory creates a new GormDirectory
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// findForTenant loads one row of the tenant into dest
func (d *GormDirectory) findForTenant(ctx context.Context, dest any, resource string, tenantID, id uuid.UUID, scopes ...func(*gorm.DB) *gorm.DB) error {
	err := d.db.WithContext(ctx).
		Scopes(scopes...).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(resource, id)
	}
	return err
}

// FindPatient returns the patient
func (d *GormDirectory) FindPatient(ctx context.Context, tenantID, id uuid.UUID) (*registry.Patient, error) {
	var m models.PatientModel
	if err := d.findForTenant(ctx, &m, "patient", tenantID, id); err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindVisit returns the visit
func (d *GormDirectory) FindVisit(ctx context.Context, tenantID, id uuid.UUID) (*registry.Visit, error) {
	var m models.VisitModel
	if err := d.findForTenant(ctx, &m, "visit", tenantID, id); err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindEmployee returns the employee
func (d *GormDirectory) FindEmployee(ctx context.Context, tenantID, id uuid.UUID) (*registry.Employee, error) {
	var m models.EmployeeModel
	if err := d.findForTenant(ctx, &m, "employee", tenantID, id); err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindService returns an active service
func (d *GormDirectory) FindService(ctx context.Context, tenantID, id uuid.UUID) (*registry.Service, error) {
	var m models.ServiceModel
	active := func(db *gorm.DB) *gorm.DB { return db.Where("is_active = ?", true) }
	if err := d.findForTenant(ctx, &m, "service", tenantID, id, active); err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindDepartment returns the department
func (d *GormDirectory) FindDepartment(ctx context.Context, tenantID, id uuid.UUID) (*registry.Department, error) {
	var m models.DepartmentModel
	if err := d.findForTenant(ctx, &m, "department", tenantID, id); err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// Ensure GormDirectory implements Directory
var _ registry.Directory = (*GormDirectory)(nil)
