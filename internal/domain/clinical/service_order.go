package clinical

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeServiceOrder is the aggregate type recorded on service order events
const AggregateTypeServiceOrder = "ServiceOrder"

// ServiceOrder records one ordered clinical service. Billing only mirrors its
// payment status; the queue fields are owned by the department queue.
type ServiceOrder struct {
	shared.TenantAggregateRoot
	PatientID     uuid.UUID
	VisitID       *uuid.UUID
	DoctorID      uuid.UUID
	ServiceID     uuid.UUID
	DepartmentID  *uuid.UUID
	Status        OrderStatus
	PaymentStatus PaymentStatus

	QueueNumber   *int
	QueueStatus   QueueStatus
	QueueDate     string // YYYY-MM-DD of QueuedAt in the queue's calendar
	QueuedAt      *time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	ResultAt      *time.Time
	PerformedByID *uuid.UUID

	ResultText    string
	ResultData    json.RawMessage
	ResultFileURL string
}

// NewServiceOrderParams groups the arguments of NewServiceOrder
type NewServiceOrderParams struct {
	TenantID     uuid.UUID
	PatientID    uuid.UUID
	VisitID      *uuid.UUID
	DoctorID     uuid.UUID
	ServiceID    uuid.UUID
	DepartmentID *uuid.UUID
}

// NewServiceOrder creates an ORDERED, UNPAID order that is not yet queued.
func NewServiceOrder(p NewServiceOrderParams, now time.Time) (*ServiceOrder, error) {
	if p.PatientID == uuid.Nil {
		return nil, shared.NewValidationError("Service order patient is required")
	}
	if p.ServiceID == uuid.Nil {
		return nil, shared.NewValidationError("Service order service is required")
	}
	if p.DoctorID == uuid.Nil {
		return nil, shared.NewValidationError("Service order doctor is required")
	}
	return &ServiceOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(p.TenantID, now),
		PatientID:           p.PatientID,
		VisitID:             p.VisitID,
		DoctorID:            p.DoctorID,
		ServiceID:           p.ServiceID,
		DepartmentID:        p.DepartmentID,
		Status:              OrderStatusOrdered,
		PaymentStatus:       PaymentStatusUnpaid,
		QueueStatus:         QueueStatusNone,
	}, nil
}

// HasDepartment reports whether the order is served by a department
func (o *ServiceOrder) HasDepartment() bool {
	return o.DepartmentID != nil && *o.DepartmentID != uuid.Nil
}

// SetPaymentStatus mirrors the billing status. Returns false if nothing changed.
func (o *ServiceOrder) SetPaymentStatus(status PaymentStatus, now time.Time) bool {
	if o.PaymentStatus == status {
		return false
	}
	o.PaymentStatus = status
	o.touch(now)
	return true
}

// Eligibility describes why an order can or cannot be admitted to a queue.
type Eligibility string

const (
	Eligible           Eligibility = ""
	IneligibleUnpaid   Eligibility = "order is not paid"
	IneligibleNoDept   Eligibility = "order has no department"
	IneligibleQueued   Eligibility = "order is already queued"
	IneligibleNotFound Eligibility = "order not found"
)

// AdmissionEligibility checks the enqueue preconditions.
func (o *ServiceOrder) AdmissionEligibility() Eligibility {
	switch {
	case o.PaymentStatus != PaymentStatusPaid:
		return IneligibleUnpaid
	case !o.HasDepartment():
		return IneligibleNoDept
	case o.QueueStatus.IsQueued():
		return IneligibleQueued
	}
	return Eligible
}

// CanEnqueue returns true if the order may be admitted now
func (o *ServiceOrder) CanEnqueue() bool {
	return o.AdmissionEligibility() == Eligible
}

// Enqueue admits the order as WAITING with the allocated number for day.
func (o *ServiceOrder) Enqueue(number int, day shared.DayWindow, now time.Time) error {
	if reason := o.AdmissionEligibility(); reason != Eligible {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot enqueue service order: %s", reason))
	}
	if number < 1 {
		return shared.NewValidationError("Queue number must be positive")
	}
	n := number
	o.QueueNumber = &n
	o.QueueStatus = QueueStatusWaiting
	o.QueueDate = day.Key()
	o.QueuedAt = &now
	o.touch(now)

	o.AddDomainEvent(newQueueEvent(EventTypeServiceOrderQueued, o, now))
	return nil
}

func transitionConflict(action string, from QueueStatus) error {
	return shared.NewConflictError(fmt.Sprintf("Cannot %s a service order in %s queue status", action, from))
}

// StartService moves WAITING → IN_PROGRESS.
func (o *ServiceOrder) StartService(performedByID *uuid.UUID, now time.Time) error {
	if !o.QueueStatus.CanStart() {
		return transitionConflict("start", o.QueueStatus)
	}
	o.QueueStatus = QueueStatusInProgress
	o.Status = OrderStatusInProgress
	o.StartedAt = &now
	if performedByID != nil && *performedByID != uuid.Nil {
		p := *performedByID
		o.PerformedByID = &p
	}
	o.touch(now)

	o.AddDomainEvent(newQueueEvent(EventTypeServiceStarted, o, now))
	return nil
}

// ServiceResult is the outcome recorded when service completes. All fields are optional.
type ServiceResult struct {
	Text    string
	Data    json.RawMessage
	FileURL string
}

// CompleteService moves IN_PROGRESS → COMPLETED and stores the result.
func (o *ServiceOrder) CompleteService(result ServiceResult, now time.Time) error {
	if !o.QueueStatus.CanComplete() {
		return transitionConflict("complete", o.QueueStatus)
	}
	if len(result.Data) > 0 && !json.Valid(result.Data) {
		return shared.NewValidationError("Result data must be valid JSON")
	}
	o.QueueStatus = QueueStatusCompleted
	o.Status = OrderStatusCompleted
	o.FinishedAt = &now
	o.ResultAt = &now
	o.ResultText = result.Text
	o.ResultData = result.Data
	o.ResultFileURL = result.FileURL
	o.touch(now)

	o.AddDomainEvent(newQueueEvent(EventTypeServiceCompleted, o, now))
	return nil
}

// Skip moves WAITING → SKIPPED. The queue number is kept.
func (o *ServiceOrder) Skip(now time.Time) error {
	if !o.QueueStatus.CanSkip() {
		return transitionConflict("skip", o.QueueStatus)
	}
	o.QueueStatus = QueueStatusSkipped
	o.touch(now)

	o.AddDomainEvent(newQueueEvent(EventTypePatientSkipped, o, now))
	return nil
}

// ReturnToQueue moves SKIPPED → WAITING, keeping the original queue number.
func (o *ServiceOrder) ReturnToQueue(now time.Time) error {
	if !o.QueueStatus.CanReturn() {
		return transitionConflict("return", o.QueueStatus)
	}
	o.QueueStatus = QueueStatusWaiting
	o.touch(now)

	o.AddDomainEvent(newQueueEvent(EventTypePatientReturned, o, now))
	return nil
}

// IsDeletable reports whether the order can be removed together with the
// invoice that provisioned it: never queued, never started, never paid.
func (o *ServiceOrder) IsDeletable() bool {
	return o.Status == OrderStatusOrdered &&
		!o.QueueStatus.IsQueued() &&
		o.PaymentStatus != PaymentStatusPaid
}

func (o *ServiceOrder) touch(now time.Time) {
	o.Touch(now)
	o.IncrementVersion()
}
