package models

import (
	"encoding/json"
	"time"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/google/uuid"
)

// ServiceOrderModel is the persistence model for the ServiceOrder aggregate root.
type ServiceOrderModel struct {
	TenantAggregateModel
	PatientID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	VisitID       *uuid.UUID             `gorm:"type:uuid;index"`
	DoctorID      uuid.UUID              `gorm:"type:uuid;not null"`
	ServiceID     uuid.UUID              `gorm:"type:uuid;not null"`
	DepartmentID  *uuid.UUID             `gorm:"type:uuid;index:idx_service_order_queue"`
	Status        clinical.OrderStatus   `gorm:"type:varchar(20);not null;default:'ORDERED'"`
	PaymentStatus clinical.PaymentStatus `gorm:"type:varchar(20);not null;default:'UNPAID'"`

	QueueNumber   *int
	QueueStatus   *string `gorm:"type:varchar(20)"`
	QueueDate     *string `gorm:"type:varchar(10);index:idx_service_order_queue"`
	QueuedAt      *time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	ResultAt      *time.Time
	PerformedByID *uuid.UUID `gorm:"type:uuid"`

	ResultText    string  `gorm:"type:text"`
	ResultData    *string `gorm:"type:jsonb"`
	ResultFileURL string  `gorm:"type:varchar(1000)"`
}

// TableName returns the table name for GORM
func (ServiceOrderModel) TableName() string {
	return "service_orders"
}

// ToDomain converts the persistence model to a domain ServiceOrder.
func (m *ServiceOrderModel) ToDomain() *clinical.ServiceOrder {
	o := &clinical.ServiceOrder{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		PatientID:           m.PatientID,
		VisitID:             m.VisitID,
		DoctorID:            m.DoctorID,
		ServiceID:           m.ServiceID,
		DepartmentID:        m.DepartmentID,
		Status:              m.Status,
		PaymentStatus:       m.PaymentStatus,
		QueueNumber:         m.QueueNumber,
		QueuedAt:            m.QueuedAt,
		StartedAt:           m.StartedAt,
		FinishedAt:          m.FinishedAt,
		ResultAt:            m.ResultAt,
		PerformedByID:       m.PerformedByID,
		ResultText:          m.ResultText,
		ResultFileURL:       m.ResultFileURL,
	}
	if m.QueueStatus != nil {
		o.QueueStatus = clinical.QueueStatus(*m.QueueStatus)
	}
	if m.QueueDate != nil {
		o.QueueDate = *m.QueueDate
	}
	if m.ResultData != nil {
		o.ResultData = json.RawMessage(*m.ResultData)
	}
	return o
}

// FromDomain populates the persistence model from a domain ServiceOrder.
// Unset queue fields and an empty result payload are stored as NULL.
func (m *ServiceOrderModel) FromDomain(o *clinical.ServiceOrder) {
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	m.PatientID = o.PatientID
	m.VisitID = o.VisitID
	m.DoctorID = o.DoctorID
	m.ServiceID = o.ServiceID
	m.DepartmentID = o.DepartmentID
	m.Status = o.Status
	m.PaymentStatus = o.PaymentStatus
	m.QueueNumber = o.QueueNumber
	m.QueueStatus = nil
	if o.QueueStatus != clinical.QueueStatusNone {
		s := string(o.QueueStatus)
		m.QueueStatus = &s
	}
	m.QueueDate = nil
	if o.QueueDate != "" {
		d := o.QueueDate
		m.QueueDate = &d
	}
	m.QueuedAt = o.QueuedAt
	m.StartedAt = o.StartedAt
	m.FinishedAt = o.FinishedAt
	m.ResultAt = o.ResultAt
	m.PerformedByID = o.PerformedByID
	m.ResultText = o.ResultText
	m.ResultData = nil
	if len(o.ResultData) > 0 {
		d := string(o.ResultData)
		m.ResultData = &d
	}
	m.ResultFileURL = o.ResultFileURL
}

// ServiceOrderModelFromDomain creates a new persistence model from a domain ServiceOrder.
func ServiceOrderModelFromDomain(o *clinical.ServiceOrder) *ServiceOrderModel {
	m := &ServiceOrderModel{}
	m.FromDomain(o)
	return m
}

// AdmissionFailureModel records a queue admission that failed after settlement.
type AdmissionFailureModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;index"`
	InvoiceID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ServiceOrderID uuid.UUID `gorm:"type:uuid;not null;index"`
	Reason         string    `gorm:"type:text;not null"`
	OccurredAt     time.Time `gorm:"not null"`
	ResolvedAt     *time.Time
}

// TableName returns the table name for GORM
func (AdmissionFailureModel) TableName() string {
	return "queue_admission_failures"
}

// ToDomain converts the persistence model to a domain AdmissionFailure.
func (m *AdmissionFailureModel) ToDomain() *clinical.AdmissionFailure {
	return &clinical.AdmissionFailure{
		ID:             m.ID,
		TenantID:       m.TenantID,
		InvoiceID:      m.InvoiceID,
		ServiceOrderID: m.ServiceOrderID,
		Reason:         m.Reason,
		OccurredAt:     m.OccurredAt,
		ResolvedAt:     m.ResolvedAt,
	}
}

// AdmissionFailureModelFromDomain creates a new persistence model from a domain AdmissionFailure.
func AdmissionFailureModelFromDomain(f *clinical.AdmissionFailure) *AdmissionFailureModel {
	return &AdmissionFailureModel{
		ID:             f.ID,
		TenantID:       f.TenantID,
		InvoiceID:      f.InvoiceID,
		ServiceOrderID: f.ServiceOrderID,
		Reason:         f.Reason,
		OccurredAt:     f.OccurredAt,
		ResolvedAt:     f.ResolvedAt,
	}
}
