package billing

import (
	"fmt"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineSpec is a fully resolved invoice line: the unit price has already been
// defaulted from the catalog by the caller.
type LineSpec struct {
	ServiceID      uuid.UUID
	ServiceOrderID *uuid.UUID
	// ProvisionedOrder marks a service order created for this line rather than referenced.
	ProvisionedOrder bool
	Quantity         int
	UnitPrice        decimal.Decimal
	Discount         decimal.Decimal
}

// InvoiceItem is one billed service on an invoice.
// TotalPrice = UnitPrice × Quantity − Discount and is never negative.
type InvoiceItem struct {
	ID               uuid.UUID
	InvoiceID        uuid.UUID
	ServiceID        uuid.UUID
	ServiceOrderID   *uuid.UUID
	ProvisionedOrder bool
	Quantity         int
	UnitPrice        decimal.Decimal
	Discount         decimal.Decimal
	TotalPrice       decimal.Decimal
	CreatedAt        time.Time
}

// LineTotal computes unitPrice × quantity − discount in currency.
func LineTotal(unitPrice decimal.Decimal, quantity int, discount decimal.Decimal, currency valueobject.Currency) (valueobject.Money, error) {
	price, err := valueobject.NewMoney(unitPrice, currency)
	if err != nil {
		return valueobject.Money{}, err
	}
	off, err := valueobject.NewMoney(discount, currency)
	if err != nil {
		return valueobject.Money{}, err
	}
	return price.MultiplyByInt(int64(quantity)).Subtract(off)
}

// NewInvoiceItem validates a line and prices it.
func NewInvoiceItem(invoiceID uuid.UUID, line LineSpec, currency valueobject.Currency, now time.Time) (*InvoiceItem, error) {
	if line.ServiceID == uuid.Nil {
		return nil, shared.NewValidationError("Item service is required")
	}
	if line.Quantity < 1 {
		return nil, shared.NewValidationError("Item quantity must be at least 1")
	}
	if line.UnitPrice.IsNegative() {
		return nil, shared.NewValidationError("Item unit price cannot be negative")
	}
	if line.Discount.IsNegative() {
		return nil, shared.NewValidationError("Item discount cannot be negative")
	}
	if !valueobject.FitsScale(line.UnitPrice) || !valueobject.FitsScale(line.Discount) {
		return nil, shared.NewValidationError(fmt.Sprintf("Item amounts allow at most %d decimal places", valueobject.MoneyScale))
	}
	total, err := LineTotal(line.UnitPrice, line.Quantity, line.Discount, currency)
	if err != nil {
		return nil, err
	}
	if total.IsNegative() {
		return nil, shared.NewValidationError("Item discount cannot exceed its price")
	}
	return &InvoiceItem{
		ID:               uuid.New(),
		InvoiceID:        invoiceID,
		ServiceID:        line.ServiceID,
		ServiceOrderID:   line.ServiceOrderID,
		ProvisionedOrder: line.ProvisionedOrder && line.ServiceOrderID != nil,
		Quantity:         line.Quantity,
		UnitPrice:        line.UnitPrice,
		Discount:         line.Discount,
		TotalPrice:       total.Amount(),
		CreatedAt:        now,
	}, nil
}

// HasServiceOrder reports whether the item is linked to a service order.
func (i *InvoiceItem) HasServiceOrder() bool {
	return i.ServiceOrderID != nil && *i.ServiceOrderID != uuid.Nil
}

// OwnsServiceOrder reports whether the item's service order was created for it.
func (i *InvoiceItem) OwnsServiceOrder() bool {
	return i.ProvisionedOrder && i.HasServiceOrder()
}
