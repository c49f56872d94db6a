package billing

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeInvoice is the aggregate type recorded on invoice events
const AggregateTypeInvoice = "Invoice"

// Invoice is the billing aggregate root. It aggregates service charges for a
// patient and the payments made against them.
//
// Invariants:
//   - TotalAmount equals the sum of Items[].TotalPrice
//   - 0 <= PaidAmount <= TotalAmount
//   - PaidAmount equals the sum of Payments[].Amount
//   - Status is DeriveStatus(PaidAmount, TotalAmount) unless REFUNDED
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber string
	PatientID     uuid.UUID
	VisitID       *uuid.UUID
	Currency      valueobject.Currency
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	Status        InvoiceStatus
	Notes         string
	DueDate       *time.Time
	CreatedByID   uuid.UUID
	RefundedAt    *time.Time
	Items         []InvoiceItem
	Payments      []Payment
}

// NewInvoiceParams groups the arguments of NewInvoice
type NewInvoiceParams struct {
	TenantID      uuid.UUID
	InvoiceNumber string
	PatientID     uuid.UUID
	VisitID       *uuid.UUID
	Currency      valueobject.Currency
	Notes         string
	DueDate       *time.Time
	CreatedByID   uuid.UUID
	Lines         []LineSpec
	// ItemIDs optionally pre-assigns item ids, index-aligned with Lines.
	ItemIDs []uuid.UUID
}

// NewInvoice creates an UNPAID invoice from priced lines.
func NewInvoice(p NewInvoiceParams, now time.Time) (*Invoice, error) {
	if p.TenantID == uuid.Nil {
		return nil, shared.NewValidationError("Tenant is required")
	}
	if p.PatientID == uuid.Nil {
		return nil, shared.NewValidationError("Patient is required")
	}
	if strings.TrimSpace(p.InvoiceNumber) == "" {
		return nil, shared.NewValidationError("Invoice number is required")
	}
	if len(p.Lines) == 0 {
		return nil, shared.NewValidationError("Invoice must have at least one item")
	}
	currency := p.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(p.TenantID, now),
		InvoiceNumber:       p.InvoiceNumber,
		PatientID:           p.PatientID,
		VisitID:             p.VisitID,
		Currency:            currency,
		TotalAmount:         decimal.Zero,
		PaidAmount:          decimal.Zero,
		Status:              InvoiceStatusUnpaid,
		Notes:               p.Notes,
		DueDate:             p.DueDate,
		CreatedByID:         p.CreatedByID,
		Items:               make([]InvoiceItem, 0, len(p.Lines)),
		Payments:            make([]Payment, 0),
	}

	total := valueobject.Zero(currency)
	for i, line := range p.Lines {
		item, err := NewInvoiceItem(inv.ID, line, currency, now)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		if i < len(p.ItemIDs) && p.ItemIDs[i] != uuid.Nil {
			item.ID = p.ItemIDs[i]
		}
		if total, err = total.Add(item.GetTotalMoney(currency)); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, *item)
	}
	if !total.IsPositive() {
		return nil, shared.NewValidationError("Invoice total must be positive")
	}
	inv.TotalAmount = total.Amount()

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// GetTotalMoney returns the item total as Money
func (i *InvoiceItem) GetTotalMoney(currency valueobject.Currency) valueobject.Money {
	m, _ := valueobject.NewMoney(i.TotalPrice, currency)
	return m
}

// AddItem appends a priced line and moves the running total by exactly its price.
func (inv *Invoice) AddItem(line LineSpec, now time.Time) (*InvoiceItem, error) {
	if !inv.Status.CanModify() {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("Cannot add items to an invoice in %s status", inv.Status))
	}
	item, err := NewInvoiceItem(inv.ID, line, inv.Currency, now)
	if err != nil {
		return nil, err
	}
	total, err := inv.GetTotalMoney().Add(item.GetTotalMoney(inv.Currency))
	if err != nil {
		return nil, err
	}
	inv.TotalAmount = total.Amount()
	inv.Items = append(inv.Items, *item)
	inv.touch(now)

	inv.AddDomainEvent(NewInvoiceItemAddedEvent(inv, item))
	return item, nil
}

// RemoveItem drops an item and moves the running total down by exactly its price.
// The invoice must keep at least one item, and the total may not fall to or
// below what has already been paid: settlement only happens through payments.
func (inv *Invoice) RemoveItem(itemID uuid.UUID, now time.Time) (*InvoiceItem, error) {
	if !inv.Status.CanModify() {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("Cannot remove items from an invoice in %s status", inv.Status))
	}
	idx := slices.IndexFunc(inv.Items, func(it InvoiceItem) bool { return it.ID == itemID })
	if idx < 0 {
		return nil, shared.NewNotFoundError("invoice item", itemID)
	}
	if len(inv.Items) == 1 {
		return nil, shared.NewValidationError("Invoice must keep at least one item")
	}
	removed := inv.Items[idx]

	total, err := inv.GetTotalMoney().Subtract(removed.GetTotalMoney(inv.Currency))
	if err != nil {
		return nil, err
	}
	if inv.PaidAmount.IsPositive() && total.Amount().LessThanOrEqual(inv.PaidAmount) {
		return nil, shared.NewConflictError("Removing this item would bring the total to or below the paid amount")
	}
	inv.TotalAmount = total.Amount()
	inv.Items = slices.Delete(inv.Items, idx, idx+1)
	inv.touch(now)

	inv.AddDomainEvent(NewInvoiceItemRemovedEvent(inv, &removed))
	return &removed, nil
}

// Update changes notes and/or due date. Nil arguments leave a field unchanged.
func (inv *Invoice) Update(notes *string, dueDate *time.Time, now time.Time) error {
	if !inv.Status.CanModify() {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot update an invoice in %s status", inv.Status))
	}
	if notes != nil {
		inv.Notes = *notes
	}
	if dueDate != nil {
		d := *dueDate
		inv.DueDate = &d
	}
	inv.touch(now)
	return nil
}

// EnsureDeletable returns InvalidState if the invoice has payment history.
func (inv *Invoice) EnsureDeletable() error {
	if len(inv.Payments) > 0 || inv.PaidAmount.IsPositive() {
		return shared.NewInvalidStateError("Cannot delete an invoice that has payments")
	}
	return nil
}

// RecordPaymentParams groups the arguments of RecordPayment
type RecordPaymentParams struct {
	Amount        decimal.Decimal
	Method        PaymentMethod
	TransactionID string
	Notes         string
	PaidByID      uuid.UUID
}

// RecordPayment appends a payment, raises PaidAmount and re-derives the status.
func (inv *Invoice) RecordPayment(p RecordPaymentParams, now time.Time) (*Payment, error) {
	if !inv.Status.CanAcceptPayment() {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("Cannot add a payment to an invoice in %s status", inv.Status))
	}
	if !p.Amount.IsPositive() {
		return nil, shared.NewValidationError("Payment amount must be positive")
	}
	if !valueobject.FitsScale(p.Amount) {
		return nil, shared.NewValidationError(fmt.Sprintf("Payment amount allows at most %d decimal places", valueobject.MoneyScale))
	}
	if p.Method == "" {
		p.Method = PaymentMethodCash
	}
	if !p.Method.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown payment method %q", p.Method))
	}
	amount, err := valueobject.NewMoney(p.Amount, inv.Currency)
	if err != nil {
		return nil, err
	}
	exceeds, err := amount.GreaterThan(inv.GetRemainingMoney())
	if err != nil {
		return nil, err
	}
	if exceeds {
		return nil, shared.NewConflictError("amount exceeds remaining balance")
	}

	payment := Payment{
		ID:            uuid.New(),
		TenantID:      inv.TenantID,
		InvoiceID:     inv.ID,
		Amount:        p.Amount,
		Currency:      inv.Currency,
		Method:        p.Method,
		TransactionID: p.TransactionID,
		Notes:         p.Notes,
		PaidByID:      p.PaidByID,
		PaidAt:        now,
		CreatedAt:     now,
	}

	wasPaid := inv.Status == InvoiceStatusPaid
	inv.PaidAmount = inv.GetPaidMoney().MustAdd(amount).Amount()
	inv.Status = DeriveStatus(inv.PaidAmount, inv.TotalAmount)
	inv.Payments = append(inv.Payments, payment)
	inv.touch(now)

	inv.AddDomainEvent(NewPaymentRecordedEvent(inv, &payment))
	if !wasPaid && inv.IsPaid() {
		inv.AddDomainEvent(NewInvoiceSettledEvent(inv))
	}
	return &payment, nil
}

// MarkRefunded sets the terminal REFUNDED flag. No money is moved.
func (inv *Invoice) MarkRefunded(now time.Time) error {
	if !inv.Status.CanRefund() {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot refund an invoice in %s status", inv.Status))
	}
	inv.Status = InvoiceStatusRefunded
	inv.RefundedAt = &now
	inv.touch(now)

	inv.AddDomainEvent(NewInvoiceRefundedEvent(inv))
	return nil
}

func (inv *Invoice) touch(now time.Time) {
	inv.Touch(now)
	inv.IncrementVersion()
}

// IsPaid returns true if the invoice is fully settled
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// GetTotalMoney returns the total as Money
func (inv *Invoice) GetTotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.TotalAmount, inv.currency())
	return m
}

// GetPaidMoney returns the paid amount as Money
func (inv *Invoice) GetPaidMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.PaidAmount, inv.currency())
	return m
}

// GetRemainingMoney returns totalAmount − paidAmount
func (inv *Invoice) GetRemainingMoney() valueobject.Money {
	return inv.GetTotalMoney().MustSubtract(inv.GetPaidMoney())
}

// RemainingBalance returns totalAmount − paidAmount
func (inv *Invoice) RemainingBalance() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.PaidAmount)
}

func (inv *Invoice) currency() valueobject.Currency {
	if inv.Currency == "" {
		return valueobject.DefaultCurrency
	}
	return inv.Currency
}

// RecomputedTotal sums the current items from scratch.
func (inv *Invoice) RecomputedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range inv.Items {
		total = total.Add(it.TotalPrice)
	}
	return total
}

// PaymentsTotal sums the recorded payments from scratch.
func (inv *Invoice) PaymentsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range inv.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// ServiceOrderIDs returns the distinct service orders linked from items, in item order.
func (inv *Invoice) ServiceOrderIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(inv.Items))
	seen := make(map[uuid.UUID]struct{}, len(inv.Items))
	for _, it := range inv.Items {
		if !it.HasServiceOrder() {
			continue
		}
		if _, ok := seen[*it.ServiceOrderID]; ok {
			continue
		}
		seen[*it.ServiceOrderID] = struct{}{}
		ids = append(ids, *it.ServiceOrderID)
	}
	return ids
}

// ProvisionedServiceOrderIDs returns the service orders that were created for this invoice's items.
func (inv *Invoice) ProvisionedServiceOrderIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(inv.Items))
	for _, it := range inv.Items {
		if it.OwnsServiceOrder() {
			ids = append(ids, *it.ServiceOrderID)
		}
	}
	return ids
}

// FindItem returns the item with the given id, or nil.
func (inv *Invoice) FindItem(itemID uuid.UUID) *InvoiceItem {
	for i := range inv.Items {
		if inv.Items[i].ID == itemID {
			return &inv.Items[i]
		}
	}
	return nil
}
