package clinical

// OrderStatus is the clinical lifecycle of a service order
type OrderStatus string

const (
	OrderStatusOrdered    OrderStatus = "ORDERED"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusOrdered, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// PaymentStatus mirrors the settlement status of the invoice billing an order
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "UNPAID"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusPaid          PaymentStatus = "PAID"
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartiallyPaid, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// QueueStatus is the position of an order in its department queue.
// The zero value means the order has not been admitted.
type QueueStatus string

const (
	QueueStatusNone       QueueStatus = ""
	QueueStatusWaiting    QueueStatus = "WAITING"
	QueueStatusInProgress QueueStatus = "IN_PROGRESS"
	QueueStatusCompleted  QueueStatus = "COMPLETED"
	QueueStatusSkipped    QueueStatus = "SKIPPED"
)

// IsValid checks if the status is a valid QueueStatus (including unset)
func (s QueueStatus) IsValid() bool {
	switch s {
	case QueueStatusNone, QueueStatusWaiting, QueueStatusInProgress, QueueStatusCompleted, QueueStatusSkipped:
		return true
	}
	return false
}

// String returns the string representation of QueueStatus
func (s QueueStatus) String() string {
	if s == QueueStatusNone {
		return "UNSET"
	}
	return string(s)
}

// IsQueued returns true once the order has been admitted
func (s QueueStatus) IsQueued() bool {
	return s != QueueStatusNone
}

// CanStart returns true if service may begin
func (s QueueStatus) CanStart() bool {
	return s == QueueStatusWaiting
}

// CanComplete returns true if service may be completed
func (s QueueStatus) CanComplete() bool {
	return s == QueueStatusInProgress
}

// CanSkip returns true if the patient may be skipped
func (s QueueStatus) CanSkip() bool {
	return s == QueueStatusWaiting
}

// CanReturn returns true if a skipped patient may rejoin the queue
func (s QueueStatus) CanReturn() bool {
	return s == QueueStatusSkipped
}
