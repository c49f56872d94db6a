package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BoardEntry is one patient on a department's "now serving" screen.
type BoardEntry struct {
	ServiceOrderID uuid.UUID  `json:"service_order_id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	ServiceID      uuid.UUID  `json:"service_id"`
	QueueNumber    int        `json:"queue_number"`
	QueueStatus    string     `json:"queue_status"`
	DisplayLabel   string     `json:"display_label"`
	QueuedAt       *time.Time `json:"queued_at,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

// Board is the read model of one department queue for one day.
type Board struct {
	DepartmentID       uuid.UUID            `json:"department_id"`
	DepartmentName     string               `json:"department_name"`
	Day                string               `json:"day"`
	Waiting            []BoardEntry         `json:"waiting"`
	InProgress         *BoardEntry          `json:"in_progress"`
	AllInProgress      []BoardEntry         `json:"all_in_progress"`
	Skipped            []BoardEntry         `json:"skipped"`
	Counts             clinical.QueueCounts `json:"counts"`
	MultipleInProgress bool                 `json:"multiple_in_progress"`
}

// BoardKey identifies a cached board.
type BoardKey struct {
	TenantID     uuid.UUID
	DepartmentID uuid.UUID
	Day          string
}

// String renders the key as "tenant:department:day".
func (k BoardKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.TenantID, k.DepartmentID, k.Day)
}

// BoardCache caches boards between queue changes.
//
// Every Invalidate bumps the key's generation. Get returns a nil board on a
// miss together with the generation it observed, and Set stores the board
// only while that generation is still current, so a board read before an
// invalidation is never written back after it.
type BoardCache interface {
	Get(ctx context.Context, key BoardKey) (*Board, uint64, error)
	Set(ctx context.Context, key BoardKey, board *Board, generation uint64) error
	Invalidate(ctx context.Context, key BoardKey) error
}

// DisplayLabel renders the number shown to patients, e.g. "№12 — Laboratory".
func DisplayLabel(number int, departmentName string) string {
	if departmentName == "" {
		return fmt.Sprintf("№%d", number)
	}
	// cases.Caser keeps state between calls and is not safe to share.
	return fmt.Sprintf("№%d — %s", number, cases.Title(language.Und).String(departmentName))
}

func newBoard(q *clinical.DepartmentQueue, departmentName string) *Board {
	entries := func(orders []clinical.ServiceOrder) []BoardEntry {
		out := make([]BoardEntry, 0, len(orders))
		for i := range orders {
			out = append(out, newBoardEntry(&orders[i], departmentName))
		}
		return out
	}

	b := &Board{
		DepartmentID:       q.DepartmentID,
		DepartmentName:     departmentName,
		Day:                q.Day,
		Waiting:            entries(q.Waiting),
		AllInProgress:      entries(q.AllInProgress),
		Skipped:            entries(q.Skipped),
		Counts:             q.Counts,
		MultipleInProgress: q.MultipleInProgress,
	}
	if q.InProgress != nil {
		e := newBoardEntry(q.InProgress, departmentName)
		b.InProgress = &e
	}
	return b
}

func newBoardEntry(o *clinical.ServiceOrder, departmentName string) BoardEntry {
	var number int
	if o.QueueNumber != nil {
		number = *o.QueueNumber
	}
	return BoardEntry{
		ServiceOrderID: o.ID,
		PatientID:      o.PatientID,
		ServiceID:      o.ServiceID,
		QueueNumber:    number,
		QueueStatus:    o.QueueStatus.String(),
		DisplayLabel:   DisplayLabel(number, departmentName),
		QueuedAt:       o.QueuedAt,
		StartedAt:      o.StartedAt,
	}
}
