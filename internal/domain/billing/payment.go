package billing

import (
	"time"

	"github.com/clinic/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is an append-only record of money received against an invoice.
type Payment struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	InvoiceID     uuid.UUID
	Amount        decimal.Decimal
	Currency      valueobject.Currency
	Method        PaymentMethod
	TransactionID string
	Notes         string
	PaidByID      uuid.UUID
	PaidAt        time.Time
	CreatedAt     time.Time
}

// GetAmountMoney returns the amount as Money value object
func (p *Payment) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.Amount, p.Currency)
	return m
}
