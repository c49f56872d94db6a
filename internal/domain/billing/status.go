package billing

import "github.com/shopspring/decimal"

// InvoiceStatus represents the settlement status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid        InvoiceStatus = "UNPAID"         // Nothing paid yet
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID" // Some but not all paid
	InvoiceStatusPaid          InvoiceStatus = "PAID"           // Fully settled
	InvoiceStatusRefunded      InvoiceStatus = "REFUNDED"       // Terminal override, set explicitly
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is possible
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusRefunded
}

// CanModify returns true if items, notes and due date may change
func (s InvoiceStatus) CanModify() bool {
	return s == InvoiceStatusUnpaid || s == InvoiceStatusPartiallyPaid
}

// CanAcceptPayment returns true if payments may be recorded in this status.
// A PAID invoice is not excluded here; its zero remaining balance rejects any amount.
func (s InvoiceStatus) CanAcceptPayment() bool {
	return s != InvoiceStatusRefunded
}

// CanRefund returns true if the invoice may be flagged as refunded
func (s InvoiceStatus) CanRefund() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusPartiallyPaid
}

// DeriveStatus computes the non-refunded status from the paid and total amounts.
func DeriveStatus(paid, total decimal.Decimal) InvoiceStatus {
	switch {
	case paid.IsPositive() && paid.GreaterThanOrEqual(total):
		return InvoiceStatusPaid
	case paid.IsPositive():
		return InvoiceStatusPartiallyPaid
	default:
		return InvoiceStatusUnpaid
	}
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash      PaymentMethod = "CASH"
	PaymentMethodCard      PaymentMethod = "CARD"
	PaymentMethodTransfer  PaymentMethod = "TRANSFER"
	PaymentMethodInsurance PaymentMethod = "INSURANCE"
	PaymentMethodOther     PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer,
		PaymentMethodInsurance, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}
