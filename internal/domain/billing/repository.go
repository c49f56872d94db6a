package billing

import (
	"context"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByIDForTenant loads an invoice with its items and payments.
	// Returns a NOT_FOUND error if it does not exist in the tenant.
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindOpenByVisitAndServiceOrders returns an UNPAID or PARTIALLY_PAID invoice of the
	// visit that already bills any of the given service orders, or nil if there is none
	FindOpenByVisitAndServiceOrders(ctx context.Context, tenantID, visitID uuid.UUID, serviceOrderIDs []uuid.UUID) (*Invoice, error)

	// FindByPatient lists a patient's invoices, newest first, without payments
	FindByPatient(ctx context.Context, tenantID, patientID uuid.UUID, page shared.PageRequest) ([]Invoice, int64, error)

	// FindByVisit lists the invoices of a visit, newest first, without payments
	FindByVisit(ctx context.Context, tenantID, visitID uuid.UUID) ([]Invoice, error)

	// Create inserts a new invoice and its items
	Create(ctx context.Context, invoice *Invoice) error

	// Update writes header changes and synchronizes the item set.
	// Returns CONCURRENCY_CONFLICT if the stored version moved since the invoice was loaded
	Update(ctx context.Context, invoice *Invoice) error

	// DeleteForTenant hard-deletes an invoice and its items
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// GenerateInvoiceNumber allocates the next invoice number of the day
	GenerateInvoiceNumber(ctx context.Context, tenantID uuid.UUID, day shared.DayWindow) (string, error)
}

// PaymentRepository defines the interface for payment persistence. Payments are append-only.
type PaymentRepository interface {
	// Create inserts a payment
	Create(ctx context.Context, payment *Payment) error

	// FindByInvoice lists an invoice's payments ordered by paidAt descending
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error)
}
