package clinical

import (
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type names
const (
	EventTypeServiceOrderQueued = "ServiceOrderQueued"
	EventTypeServiceStarted     = "ServiceStarted"
	EventTypeServiceCompleted   = "ServiceCompleted"
	EventTypePatientSkipped     = "PatientSkipped"
	EventTypePatientReturned    = "PatientReturnedToQueue"
)

// QueueEventTypes lists every event that changes a department queue
var QueueEventTypes = []string{
	EventTypeServiceOrderQueued,
	EventTypeServiceStarted,
	EventTypeServiceCompleted,
	EventTypePatientSkipped,
	EventTypePatientReturned,
}

// QueueEvent is raised on every queue admission and transition
type QueueEvent struct {
	shared.BaseDomainEvent
	DepartmentID uuid.UUID   `json:"department_id"`
	QueueDate    string      `json:"queue_date"`
	QueueNumber  int         `json:"queue_number"`
	QueueStatus  QueueStatus `json:"queue_status"`
	PatientID    uuid.UUID   `json:"patient_id"`
}

func newQueueEvent(eventType string, o *ServiceOrder, now time.Time) *QueueEvent {
	e := &QueueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeServiceOrder, o.ID, o.TenantID, now),
		QueueDate:       o.QueueDate,
		QueueStatus:     o.QueueStatus,
		PatientID:       o.PatientID,
	}
	if o.DepartmentID != nil {
		e.DepartmentID = *o.DepartmentID
	}
	if o.QueueNumber != nil {
		e.QueueNumber = *o.QueueNumber
	}
	return e
}
