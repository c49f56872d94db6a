// Package registry holds the read-only view of records owned by other parts
// of the clinic back office: patients, visits, staff, the service catalog
// and departments. Billing and the department queue only ever read them.
package registry

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Patient is a registered patient of an organization.
type Patient struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	FullName string
}

// Visit is a patient's visit, optionally assigned to a doctor.
type Visit struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	PatientID  uuid.UUID
	EmployeeID *uuid.UUID
}

// AssignedDoctor returns the visit's doctor, or fallback when none is assigned.
func (v *Visit) AssignedDoctor(fallback uuid.UUID) uuid.UUID {
	if v == nil || v.EmployeeID == nil || *v.EmployeeID == uuid.Nil {
		return fallback
	}
	return *v.EmployeeID
}

// Employee is a staff member.
type Employee struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	FullName string
}

// Service is a billable catalog entry.
type Service struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Name         string
	Price        *decimal.Decimal
	DepartmentID *uuid.UUID
	IsActive     bool
}

// HasPrice reports whether the catalog sets a price for the service.
func (s *Service) HasPrice() bool {
	return s.Price != nil
}

// Department is an organizational unit that serves patients from a queue.
type Department struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
}

// Directory resolves collaborator records inside one tenant.
// Every method returns a NOT_FOUND DomainError when the record does not
// exist or belongs to another tenant.
type Directory interface {
	// FindPatient returns the patient
	FindPatient(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error)

	// FindVisit returns the visit
	FindVisit(ctx context.Context, tenantID, id uuid.UUID) (*Visit, error)

	// FindEmployee returns the employee
	FindEmployee(ctx context.Context, tenantID, id uuid.UUID) (*Employee, error)

	// FindService returns an active catalog service; inactive services are reported as not found
	FindService(ctx context.Context, tenantID, id uuid.UUID) (*Service, error)

	// FindDepartment returns the department
	FindDepartment(ctx context.Context, tenantID, id uuid.UUID) (*Department, error)
}
