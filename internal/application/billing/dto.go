package billing

import (
	"time"

	"github.com/clinic/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Invoice DTOs ====================

// InvoiceItemInput is one requested line. UnitPrice defaults to the catalog
// price of the service; ServiceOrderID links an existing order instead of
// provisioning a new one.
type InvoiceItemInput struct {
	ServiceID      uuid.UUID
	ServiceOrderID *uuid.UUID
	Quantity       int
	UnitPrice      *decimal.Decimal
	Discount       decimal.Decimal
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	PatientID   uuid.UUID
	VisitID     *uuid.UUID
	Items       []InvoiceItemInput
	Notes       string
	DueDate     *time.Time
	CreatedByID uuid.UUID
}

// UpdateInvoiceRequest changes the notes and/or due date. Nil fields are left unchanged.
type UpdateInvoiceRequest struct {
	Notes   *string
	DueDate *time.Time
}

// CreateOutcome tells a fresh invoice from one returned by the double-billing guard.
type CreateOutcome string

const (
	CreateOutcomeCreated       CreateOutcome = "created"
	CreateOutcomeAlreadyExists CreateOutcome = "already_exists"
)

// CreateInvoiceResult is the result of Create.
type CreateInvoiceResult struct {
	Outcome CreateOutcome
	Invoice *InvoiceResponse
}

// AlreadyExists reports whether an open invoice of the visit already billed
// one of the requested service orders and was returned unchanged.
func (r *CreateInvoiceResult) AlreadyExists() bool {
	return r.Outcome == CreateOutcomeAlreadyExists
}

// InvoiceItemResponse represents an invoice line in API responses
type InvoiceItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	ServiceID      uuid.UUID       `json:"service_id"`
	ServiceOrderID *uuid.UUID      `json:"service_order_id,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Discount       decimal.Decimal `json:"discount"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	CreatedAt      time.Time       `json:"created_at"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID              uuid.UUID             `json:"id"`
	TenantID        uuid.UUID             `json:"tenant_id"`
	InvoiceNumber   string                `json:"invoice_number"`
	PatientID       uuid.UUID             `json:"patient_id"`
	VisitID         *uuid.UUID            `json:"visit_id,omitempty"`
	Currency        string                `json:"currency"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	PaidAmount      decimal.Decimal       `json:"paid_amount"`
	RemainingAmount decimal.Decimal       `json:"remaining_amount"`
	Status          string                `json:"status"`
	Notes           string                `json:"notes"`
	DueDate         *time.Time            `json:"due_date,omitempty"`
	CreatedByID     uuid.UUID             `json:"created_by_id"`
	RefundedAt      *time.Time            `json:"refunded_at,omitempty"`
	Items           []InvoiceItemResponse `json:"items"`
	Payments        []PaymentResponse     `json:"payments,omitempty"`
	Version         int                   `json:"version"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// ToInvoiceResponse converts a domain invoice to a response
func ToInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = InvoiceItemResponse{
			ID:             it.ID,
			ServiceID:      it.ServiceID,
			ServiceOrderID: it.ServiceOrderID,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Discount:       it.Discount,
			TotalPrice:     it.TotalPrice,
			CreatedAt:      it.CreatedAt,
		}
	}
	var payments []PaymentResponse
	if len(inv.Payments) > 0 {
		payments = ToPaymentResponses(inv.Payments)
	}
	return InvoiceResponse{
		ID:              inv.ID,
		TenantID:        inv.TenantID,
		InvoiceNumber:   inv.InvoiceNumber,
		PatientID:       inv.PatientID,
		VisitID:         inv.VisitID,
		Currency:        string(inv.Currency),
		TotalAmount:     inv.TotalAmount,
		PaidAmount:      inv.PaidAmount,
		RemainingAmount: inv.RemainingBalance(),
		Status:          inv.Status.String(),
		Notes:           inv.Notes,
		DueDate:         inv.DueDate,
		CreatedByID:     inv.CreatedByID,
		RefundedAt:      inv.RefundedAt,
		Items:           items,
		Payments:        payments,
		Version:         inv.Version,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

// ToInvoiceResponses converts a list of invoices
func ToInvoiceResponses(invoices []billing.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = ToInvoiceResponse(&invoices[i])
	}
	return out
}

// ==================== Payment DTOs ====================

// AddPaymentRequest represents a request to record a payment.
// IdempotencyKey, when set, rejects a repeated submission of the same payment.
type AddPaymentRequest struct {
	Amount         decimal.Decimal
	Method         billing.PaymentMethod
	TransactionID  string
	Notes          string
	PaidByID       uuid.UUID
	IdempotencyKey string
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	PaidByID      uuid.UUID       `json:"paid_by_id"`
	PaidAt        time.Time       `json:"paid_at"`
}

// ToPaymentResponse converts a domain payment to a response
func ToPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		InvoiceID:     p.InvoiceID,
		Amount:        p.Amount,
		Currency:      string(p.Currency),
		Method:        p.Method.String(),
		TransactionID: p.TransactionID,
		Notes:         p.Notes,
		PaidByID:      p.PaidByID,
		PaidAt:        p.PaidAt,
	}
}

// ToPaymentResponses converts a list of payments
func ToPaymentResponses(payments []billing.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out
}

// AdmissionOutcome reports what happened to one service order after settlement.
// Exactly one of Admitted, Skipped or a failure (both false, Reason set) holds.
type AdmissionOutcome struct {
	ServiceOrderID uuid.UUID  `json:"service_order_id"`
	Admitted       bool       `json:"admitted"`
	Skipped        bool       `json:"skipped"`
	QueueNumber    *int       `json:"queue_number,omitempty"`
	QueueDate      string     `json:"queue_date,omitempty"`
	DepartmentID   *uuid.UUID `json:"department_id,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

// Failed reports whether the admission attempt errored.
func (o AdmissionOutcome) Failed() bool {
	return !o.Admitted && !o.Skipped
}

// AddPaymentResult is the result of AddPayment. Admissions is empty unless
// the payment settled the invoice.
type AddPaymentResult struct {
	Payment    PaymentResponse    `json:"payment"`
	Invoice    InvoiceResponse    `json:"invoice"`
	Admissions []AdmissionOutcome `json:"admissions"`
}
