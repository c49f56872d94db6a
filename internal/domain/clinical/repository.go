package clinical

import (
	"context"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ServiceOrderRepository defines the interface for service order persistence
type ServiceOrderRepository interface {
	// FindByIDForTenant returns a NOT_FOUND error if the order is missing or in another tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ServiceOrder, error)

	// FindByIDsForTenant returns the orders that exist in the tenant, in no particular order
	FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]ServiceOrder, error)

	// FindByDepartmentAndDay returns every order admitted to the department on day (YYYY-MM-DD)
	FindByDepartmentAndDay(ctx context.Context, tenantID, departmentID uuid.UUID, day string) ([]ServiceOrder, error)

	// Create inserts a new order
	Create(ctx context.Context, order *ServiceOrder) error

	// Update saves an order, failing with CONCURRENCY_CONFLICT if it changed since it was loaded
	Update(ctx context.Context, order *ServiceOrder) error

	// DeleteForTenant hard-deletes orders by id
	DeleteForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error

	// NextQueueNumber allocates the next number of the department's day.
	// It must run inside a unit of work; the allocation is serialized per
	// (tenant, department, day) and committed or rolled back with it.
	NextQueueNumber(ctx context.Context, tenantID, departmentID uuid.UUID, day shared.DayWindow) (int, error)
}

// AdmissionFailureRepository persists failed queue admissions
type AdmissionFailureRepository interface {
	// Record inserts a failure
	Record(ctx context.Context, failure *AdmissionFailure) error

	// FindOpenByInvoice lists unresolved failures of an invoice, oldest first
	FindOpenByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]AdmissionFailure, error)

	// MarkResolved closes every open failure of the order
	MarkResolved(ctx context.Context, tenantID, serviceOrderID uuid.UUID, at time.Time) error
}
