package dto

import (
	"time"

	appbilling "github.com/clinic/backend/internal/application/billing"
	"github.com/clinic/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceItemRequest is one line of a create or add-item request.
// UnitPrice defaults to the catalogue price of the service.
type InvoiceItemRequest struct {
	ServiceID      uuid.UUID        `json:"service_id" binding:"required"`
	ServiceOrderID *uuid.UUID       `json:"service_order_id"`
	Quantity       int              `json:"quantity" binding:"required,min=1"`
	UnitPrice      *decimal.Decimal `json:"unit_price" binding:"omitempty,gte=0"`
	Discount       *decimal.Decimal `json:"discount" binding:"omitempty,gte=0"`
}

// ToInput converts the request line to the service input
func (r InvoiceItemRequest) ToInput() appbilling.InvoiceItemInput {
	in := appbilling.InvoiceItemInput{
		ServiceID:      r.ServiceID,
		ServiceOrderID: r.ServiceOrderID,
		Quantity:       r.Quantity,
		UnitPrice:      r.UnitPrice,
	}
	if r.Discount != nil {
		in.Discount = *r.Discount
	}
	return in
}

// CreateInvoiceRequest is the body of POST /invoices
type CreateInvoiceRequest struct {
	PatientID uuid.UUID            `json:"patient_id" binding:"required"`
	VisitID   *uuid.UUID           `json:"visit_id"`
	Items     []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	Notes     string               `json:"notes" binding:"max=2000"`
	DueDate   *time.Time           `json:"due_date"`
}

// ToServiceRequest converts the body; the author is the acting user
func (r CreateInvoiceRequest) ToServiceRequest(actorID uuid.UUID) appbilling.CreateInvoiceRequest {
	items := make([]appbilling.InvoiceItemInput, len(r.Items))
	for i, it := range r.Items {
		items[i] = it.ToInput()
	}
	return appbilling.CreateInvoiceRequest{
		PatientID:   r.PatientID,
		VisitID:     r.VisitID,
		Items:       items,
		Notes:       r.Notes,
		DueDate:     r.DueDate,
		CreatedByID: actorID,
	}
}

// CreateInvoiceResponse adds the double-billing flag to the invoice
type CreateInvoiceResponse struct {
	appbilling.InvoiceResponse
	AlreadyExists bool `json:"already_exists"`
}

// UpdateInvoiceRequest is the body of PUT /invoices/:id
type UpdateInvoiceRequest struct {
	Notes   *string    `json:"notes" binding:"omitempty,max=2000"`
	DueDate *time.Time `json:"due_date"`
}

// ToServiceRequest converts the body
func (r UpdateInvoiceRequest) ToServiceRequest() appbilling.UpdateInvoiceRequest {
	return appbilling.UpdateInvoiceRequest{Notes: r.Notes, DueDate: r.DueDate}
}

// AddPaymentRequest is the body of POST /invoices/:id/payments
type AddPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required,gt=0"`
	Method        string          `json:"method" binding:"required,oneof=CASH CARD TRANSFER INSURANCE OTHER"`
	TransactionID string          `json:"transaction_id" binding:"max=100"`
	Notes         string          `json:"notes" binding:"max=2000"`
	PaidByID      *uuid.UUID      `json:"paid_by_id"`
}

// ToServiceRequest converts the body. The acting user receives the payment
// unless paid_by_id names someone else.
func (r AddPaymentRequest) ToServiceRequest(actorID uuid.UUID, idempotencyKey string) appbilling.AddPaymentRequest {
	paidBy := actorID
	if r.PaidByID != nil && *r.PaidByID != uuid.Nil {
		paidBy = *r.PaidByID
	}
	return appbilling.AddPaymentRequest{
		Amount:         r.Amount,
		Method:         billing.PaymentMethod(r.Method),
		TransactionID:  r.TransactionID,
		Notes:          r.Notes,
		PaidByID:       paidBy,
		IdempotencyKey: idempotencyKey,
	}
}

// RetryAdmissionsResponse lists the outcome per linked service order
type RetryAdmissionsResponse struct {
	InvoiceID  uuid.UUID                     `json:"invoice_id"`
	Admissions []appbilling.AdmissionOutcome `json:"admissions"`
}
