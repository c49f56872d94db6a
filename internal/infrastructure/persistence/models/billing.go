package models

import (
	"time"

	"github.com/clinic/backend/internal/domain/billing"
	"github.com/clinic/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	TenantAggregateModel
	InvoiceNumber string                `gorm:"type:varchar(50);not null;index"`
	PatientID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	VisitID       *uuid.UUID            `gorm:"type:uuid;index"`
	Currency      string                `gorm:"type:varchar(3);not null"`
	TotalAmount   decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAmount    decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Status        billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	Notes         string                `gorm:"type:text"`
	DueDate       *time.Time
	CreatedByID   uuid.UUID `gorm:"type:uuid;not null"`
	RefundedAt    *time.Time
	Items         []InvoiceItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
	Payments      []PaymentModel     `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
// Payments are only mapped when they were preloaded.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		InvoiceNumber:       m.InvoiceNumber,
		PatientID:           m.PatientID,
		VisitID:             m.VisitID,
		Currency:            valueobject.Currency(m.Currency),
		TotalAmount:         m.TotalAmount,
		PaidAmount:          m.PaidAmount,
		Status:              m.Status,
		Notes:               m.Notes,
		DueDate:             m.DueDate,
		CreatedByID:         m.CreatedByID,
		RefundedAt:          m.RefundedAt,
		Items:               make([]billing.InvoiceItem, len(m.Items)),
		Payments:            make([]billing.Payment, len(m.Payments)),
	}
	for i := range m.Items {
		inv.Items[i] = *m.Items[i].ToDomain()
	}
	for i := range m.Payments {
		inv.Payments[i] = *m.Payments[i].ToDomain()
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice.
// Payments are not copied: they are append-only and written by the payment repository.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.PatientID = inv.PatientID
	m.VisitID = inv.VisitID
	m.Currency = string(inv.Currency)
	m.TotalAmount = inv.TotalAmount
	m.PaidAmount = inv.PaidAmount
	m.Status = inv.Status
	m.Notes = inv.Notes
	m.DueDate = inv.DueDate
	m.CreatedByID = inv.CreatedByID
	m.RefundedAt = inv.RefundedAt
	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i := range inv.Items {
		m.Items[i] = *InvoiceItemModelFromDomain(&inv.Items[i])
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceItemModel is the persistence model for an invoice line.
type InvoiceItemModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ServiceID        uuid.UUID       `gorm:"type:uuid;not null"`
	ServiceOrderID   *uuid.UUID      `gorm:"type:uuid;index"`
	ProvisionedOrder bool            `gorm:"not null;default:false"`
	Quantity         int             `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain InvoiceItem.
func (m *InvoiceItemModel) ToDomain() *billing.InvoiceItem {
	return &billing.InvoiceItem{
		ID:               m.ID,
		InvoiceID:        m.InvoiceID,
		ServiceID:        m.ServiceID,
		ServiceOrderID:   m.ServiceOrderID,
		ProvisionedOrder: m.ProvisionedOrder,
		Quantity:         m.Quantity,
		UnitPrice:        m.UnitPrice,
		Discount:         m.Discount,
		TotalPrice:       m.TotalPrice,
		CreatedAt:        m.CreatedAt,
	}
}

// InvoiceItemModelFromDomain creates a new persistence model from a domain InvoiceItem.
func InvoiceItemModelFromDomain(i *billing.InvoiceItem) *InvoiceItemModel {
	return &InvoiceItemModel{
		ID:               i.ID,
		InvoiceID:        i.InvoiceID,
		ServiceID:        i.ServiceID,
		ServiceOrderID:   i.ServiceOrderID,
		ProvisionedOrder: i.ProvisionedOrder,
		Quantity:         i.Quantity,
		UnitPrice:        i.UnitPrice,
		Discount:         i.Discount,
		TotalPrice:       i.TotalPrice,
		CreatedAt:        i.CreatedAt,
	}
}

// PaymentModel is the persistence model for a Payment. Rows are never updated.
type PaymentModel struct {
	ID            uuid.UUID             `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	InvoiceID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Currency      string                `gorm:"type:varchar(3);not null"`
	Method        billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	TransactionID string                `gorm:"type:varchar(100)"`
	Notes         string                `gorm:"type:text"`
	PaidByID      uuid.UUID             `gorm:"type:uuid;not null"`
	PaidAt        time.Time             `gorm:"not null;index"`
	CreatedAt     time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		ID:            m.ID,
		TenantID:      m.TenantID,
		InvoiceID:     m.InvoiceID,
		Amount:        m.Amount,
		Currency:      valueobject.Currency(m.Currency),
		Method:        m.Method,
		TransactionID: m.TransactionID,
		Notes:         m.Notes,
		PaidByID:      m.PaidByID,
		PaidAt:        m.PaidAt,
		CreatedAt:     m.CreatedAt,
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	return &PaymentModel{
		ID:            p.ID,
		TenantID:      p.TenantID,
		InvoiceID:     p.InvoiceID,
		Amount:        p.Amount,
		Currency:      string(p.Currency),
		Method:        p.Method,
		TransactionID: p.TransactionID,
		Notes:         p.Notes,
		PaidByID:      p.PaidByID,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}
