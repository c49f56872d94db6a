package clinical

import (
	"time"

	"github.com/google/uuid"
)

// AdmissionFailure records a queue admission that failed after its invoice
// was settled. The payment stands; the row is kept for reconciliation until
// an explicit retry succeeds.
type AdmissionFailure struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	InvoiceID      uuid.UUID
	ServiceOrderID uuid.UUID
	Reason         string
	OccurredAt     time.Time
	ResolvedAt     *time.Time
}

// NewAdmissionFailure creates an open failure record
func NewAdmissionFailure(tenantID, invoiceID, orderID uuid.UUID, reason string, now time.Time) *AdmissionFailure {
	return &AdmissionFailure{
		ID:             uuid.New(),
		TenantID:       tenantID,
		InvoiceID:      invoiceID,
		ServiceOrderID: orderID,
		Reason:         reason,
		OccurredAt:     now,
	}
}

// IsResolved reports whether a later retry admitted the order
func (f *AdmissionFailure) IsResolved() bool {
	return f.ResolvedAt != nil
}

// Admission is the outcome of one enqueue attempt. When Admitted is false,
// Reason says which precondition did not hold; this is not an error.
type Admission struct {
	Order    *ServiceOrder
	Admitted bool
	Reason   Eligibility
}
