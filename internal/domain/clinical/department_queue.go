package clinical

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
)

// QueueCounts summarizes one department queue for a day
type QueueCounts struct {
	Waiting    int `json:"waiting"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Skipped    int `json:"skipped"`
}

// DepartmentQueue is the derived view of every order admitted to a
// department on one calendar day. It is never stored.
type DepartmentQueue struct {
	DepartmentID uuid.UUID
	Day          string
	Waiting      []ServiceOrder
	// InProgress is the order being served. Nothing prevents a second order
	// from being started, so AllInProgress and MultipleInProgress expose that case.
	InProgress         *ServiceOrder
	AllInProgress      []ServiceOrder
	Skipped            []ServiceOrder
	Counts             QueueCounts
	MultipleInProgress bool
}

func byQueueNumber(a, b ServiceOrder) int {
	return cmp.Compare(a.queueNumber(), b.queueNumber())
}

func (o *ServiceOrder) queueNumber() int {
	if o.QueueNumber == nil {
		return 0
	}
	return *o.QueueNumber
}

// BuildDepartmentQueue groups the day's orders by queue status. Orders of
// other departments or days are ignored.
func BuildDepartmentQueue(departmentID uuid.UUID, day string, orders []ServiceOrder) *DepartmentQueue {
	q := &DepartmentQueue{
		DepartmentID:  departmentID,
		Day:           day,
		Waiting:       make([]ServiceOrder, 0),
		AllInProgress: make([]ServiceOrder, 0),
		Skipped:       make([]ServiceOrder, 0),
	}
	for _, o := range orders {
		if o.DepartmentID == nil || *o.DepartmentID != departmentID || o.QueueDate != day {
			continue
		}
		switch o.QueueStatus {
		case QueueStatusWaiting:
			q.Waiting = append(q.Waiting, o)
		case QueueStatusInProgress:
			q.AllInProgress = append(q.AllInProgress, o)
		case QueueStatusSkipped:
			q.Skipped = append(q.Skipped, o)
		case QueueStatusCompleted:
			q.Counts.Completed++
		}
	}
	slices.SortFunc(q.Waiting, byQueueNumber)
	slices.SortFunc(q.AllInProgress, byQueueNumber)
	slices.SortFunc(q.Skipped, byQueueNumber)

	q.Counts.Waiting = len(q.Waiting)
	q.Counts.InProgress = len(q.AllInProgress)
	q.Counts.Skipped = len(q.Skipped)
	if len(q.AllInProgress) > 0 {
		current := q.AllInProgress[0]
		q.InProgress = &current
	}
	q.MultipleInProgress = len(q.AllInProgress) > 1
	return q
}
