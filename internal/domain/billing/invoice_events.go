package billing

import (
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeInvoiceCreated     = "InvoiceCreated"
	EventTypeInvoiceItemAdded   = "InvoiceItemAdded"
	EventTypeInvoiceItemRemoved = "InvoiceItemRemoved"
	EventTypePaymentRecorded    = "PaymentRecorded"
	EventTypeInvoiceSettled     = "InvoiceSettled"
	EventTypeInvoiceRefunded    = "InvoiceRefunded"
)

// InvoiceCreatedEvent is raised when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	PatientID     uuid.UUID       `json:"patient_id"`
	VisitID       *uuid.UUID      `json:"visit_id,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ItemCount     int             `json:"item_count"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return EventTypeInvoiceCreated
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID, inv.TenantID, inv.CreatedAt),
		InvoiceNumber:   inv.InvoiceNumber,
		PatientID:       inv.PatientID,
		VisitID:         inv.VisitID,
		TotalAmount:     inv.TotalAmount,
		ItemCount:       len(inv.Items),
	}
}

// InvoiceItemAddedEvent is raised when an item is added after creation
type InvoiceItemAddedEvent struct {
	shared.BaseDomainEvent
	ItemID      uuid.UUID       `json:"item_id"`
	ServiceID   uuid.UUID       `json:"service_id"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// EventType returns the event type name
func (e *InvoiceItemAddedEvent) EventType() string {
	return EventTypeInvoiceItemAdded
}

// NewInvoiceItemAddedEvent creates a new InvoiceItemAddedEvent
func NewInvoiceItemAddedEvent(inv *Invoice, item *InvoiceItem) *InvoiceItemAddedEvent {
	return &InvoiceItemAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceItemAdded, AggregateTypeInvoice, inv.ID, inv.TenantID, inv.UpdatedAt),
		ItemID:          item.ID,
		ServiceID:       item.ServiceID,
		TotalPrice:      item.TotalPrice,
		TotalAmount:     inv.TotalAmount,
	}
}

// InvoiceItemRemovedEvent is raised when an item is removed
type InvoiceItemRemovedEvent struct {
	shared.BaseDomainEvent
	ItemID      uuid.UUID       `json:"item_id"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// EventType returns the event type name
func (e *InvoiceItemRemovedEvent) EventType() string {
	return EventTypeInvoiceItemRemoved
}

// NewInvoiceItemRemovedEvent creates a new InvoiceItemRemovedEvent
func NewInvoiceItemRemovedEvent(inv *Invoice, item *InvoiceItem) *InvoiceItemRemovedEvent {
	return &InvoiceItemRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceItemRemoved, AggregateTypeInvoice, inv.ID, inv.TenantID, inv.UpdatedAt),
		ItemID:          item.ID,
		TotalPrice:      item.TotalPrice,
		TotalAmount:     inv.TotalAmount,
	}
}

// PaymentRecordedEvent is raised for every accepted payment
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID  uuid.UUID       `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"method"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Status     InvoiceStatus   `json:"status"`
	PaidAt     time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(inv *Invoice, p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypeInvoice, inv.ID, inv.TenantID, p.PaidAt),
		PaymentID:       p.ID,
		Amount:          p.Amount,
		Method:          p.Method,
		PaidAmount:      inv.PaidAmount,
		Status:          inv.Status,
		PaidAt:          p.PaidAt,
	}
}

// InvoiceSettledEvent is raised when paidAmount reaches totalAmount
type InvoiceSettledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber   string          `json:"invoice_number"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ServiceOrderIDs []uuid.UUID     `json:"service_order_ids"`
}

// EventType returns the event type name
func (e *InvoiceSettledEvent) EventType() string {
	return EventTypeInvoiceSettled
}

// NewInvoiceSettledEvent creates a new InvoiceSettledEvent
func NewInvoiceSettledEvent(inv *Invoice) *InvoiceSettledEvent {
	return &InvoiceSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSettled, AggregateTypeInvoice, inv.ID, inv.TenantID, inv.UpdatedAt),
		InvoiceNumber:   inv.InvoiceNumber,
		TotalAmount:     inv.TotalAmount,
		ServiceOrderIDs: inv.ServiceOrderIDs(),
	}
}

// InvoiceRefundedEvent is raised when an invoice is flagged as refunded
type InvoiceRefundedEvent struct {
	shared.BaseDomainEvent
	PaidAmount decimal.Decimal `json:"paid_amount"`
}

// EventType returns the event type name
func (e *InvoiceRefundedEvent) EventType() string {
	return EventTypeInvoiceRefunded
}

// NewInvoiceRefundedEvent creates a new InvoiceRefundedEvent
func NewInvoiceRefundedEvent(inv *Invoice) *InvoiceRefundedEvent {
	return &InvoiceRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceRefunded, AggregateTypeInvoice, inv.ID, inv.TenantID, inv.UpdatedAt),
		PaidAmount:      inv.PaidAmount,
	}
}
