package dto

import (
	"encoding/json"
	"time"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/google/uuid"
)

// ServiceOrderResponse is a service order in API responses
type ServiceOrderResponse struct {
	ID            uuid.UUID       `json:"id"`
	PatientID     uuid.UUID       `json:"patient_id"`
	VisitID       *uuid.UUID      `json:"visit_id,omitempty"`
	DoctorID      uuid.UUID       `json:"doctor_id"`
	ServiceID     uuid.UUID       `json:"service_id"`
	DepartmentID  *uuid.UUID      `json:"department_id,omitempty"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	QueueNumber   *int            `json:"queue_number,omitempty"`
	QueueStatus   string          `json:"queue_status,omitempty"`
	QueueDate     string          `json:"queue_date,omitempty"`
	QueuedAt      *time.Time      `json:"queued_at,omitempty"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	PerformedByID *uuid.UUID      `json:"performed_by_id,omitempty"`
	ResultText    string          `json:"result_text,omitempty"`
	ResultData    json.RawMessage `json:"result_data,omitempty"`
	ResultFileURL string          `json:"result_file_url,omitempty"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToServiceOrderResponse converts a domain service order
func ToServiceOrderResponse(o *clinical.ServiceOrder) ServiceOrderResponse {
	return ServiceOrderResponse{
		ID:            o.ID,
		PatientID:     o.PatientID,
		VisitID:       o.VisitID,
		DoctorID:      o.DoctorID,
		ServiceID:     o.ServiceID,
		DepartmentID:  o.DepartmentID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		QueueNumber:   o.QueueNumber,
		QueueStatus:   string(o.QueueStatus),
		QueueDate:     o.QueueDate,
		QueuedAt:      o.QueuedAt,
		StartedAt:     o.StartedAt,
		FinishedAt:    o.FinishedAt,
		PerformedByID: o.PerformedByID,
		ResultText:    o.ResultText,
		ResultData:    o.ResultData,
		ResultFileURL: o.ResultFileURL,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// StartServiceRequest is the optional body of POST /service-orders/:id/start.
// The acting user performs the service unless performed_by_id says otherwise.
type StartServiceRequest struct {
	PerformedByID *uuid.UUID `json:"performed_by_id"`
}

// CompleteServiceRequest is the body of POST /service-orders/:id/complete
type CompleteServiceRequest struct {
	ResultText    string          `json:"result_text" binding:"max=20000"`
	ResultData    json.RawMessage `json:"result_data"`
	ResultFileURL string          `json:"result_file_url" binding:"max=1024"`
}

// ToServiceResult converts the body
func (r CompleteServiceRequest) ToServiceResult() clinical.ServiceResult {
	return clinical.ServiceResult{
		Text:    r.ResultText,
		Data:    r.ResultData,
		FileURL: r.ResultFileURL,
	}
}

// ResultUploadRequest is the body of POST /service-orders/:id/result-upload-url
type ResultUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"max=255"`
}

// ResultDownloadResponse is a presigned download link
type ResultDownloadResponse struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// DepartmentQueueQuery binds the day of GET /departments/:id/queue
type DepartmentQueueQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}
