package handler

import (
	"context"
	"time"

	appqueue "github.com/clinic/backend/internal/application/queue"
	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QueueService is the department queue use case surface used by QueueHandler
type QueueService interface {
	StartService(ctx context.Context, req appqueue.StartServiceRequest) (*clinical.ServiceOrder, error)
	CompleteService(ctx context.Context, tenantID, orderID uuid.UUID, result clinical.ServiceResult) (*clinical.ServiceOrder, error)
	SkipPatient(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.ServiceOrder, error)
	ReturnToQueue(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.ServiceOrder, error)
	GetDepartmentQueue(ctx context.Context, tenantID, departmentID uuid.UUID, day string) (*appqueue.Board, error)
	GetServiceOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.ServiceOrder, error)
	ResultUploadLink(ctx context.Context, tenantID, orderID uuid.UUID, fileName, contentType string) (*appqueue.UploadLink, error)
	ResultDownloadLink(ctx context.Context, tenantID, orderID uuid.UUID) (string, time.Time, error)
}

// QueueHandler handles department queue and service order endpoints
type QueueHandler struct {
	BaseHandler
	queue QueueService
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(queue QueueService) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// DepartmentQueue handles GET /departments/:id/queue?date=YYYY-MM-DD.
// Without a date the board of today in the clinic timezone is returned.
func (h *QueueHandler) DepartmentQueue(c *gin.Context) {
	departmentID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var q dto.DepartmentQueueQuery
	if !h.BindQuery(c, &q) {
		return
	}

	board, err := h.queue.GetDepartmentQueue(c.Request.Context(), h.TenantID(c), departmentID, q.Date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, board)
}

// GetServiceOrder handles GET /service-orders/:id
func (h *QueueHandler) GetServiceOrder(c *gin.Context) {
	orderID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.queue.GetServiceOrder(c.Request.Context(), h.TenantID(c), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToServiceOrderResponse(order))
}

// Start handles POST /service-orders/:id/start
func (h *QueueHandler) Start(c *gin.Context) {
	orderID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.StartServiceRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	performer := req.PerformedByID
	if performer == nil {
		if actor := h.ActorID(c); actor != uuid.Nil {
			performer = &actor
		}
	}

	order, err := h.queue.StartService(c.Request.Context(), appqueue.StartServiceRequest{
		TenantID:       h.TenantID(c),
		ServiceOrderID: orderID,
		PerformedByID:  performer,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToServiceOrderResponse(order))
}

// Complete handles POST /service-orders/:id/complete
func (h *QueueHandler) Complete(c *gin.Context) {
	orderID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CompleteServiceRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	order, err := h.queue.CompleteService(c.Request.Context(), h.TenantID(c), orderID, req.ToServiceResult())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToServiceOrderResponse(order))
}

// Skip handles POST /service-orders/:id/skip
func (h *QueueHandler) Skip(c *gin.Context) {
	h.simpleTransition(c, h.queue.SkipPatient)
}

// Return handles POST /service-orders/:id/return
func (h *QueueHandler) Return(c *gin.Context) {
	h.simpleTransition(c, h.queue.ReturnToQueue)
}

func (h *QueueHandler) simpleTransition(
	c *gin.Context,
	transition func(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.ServiceOrder, error),
) {
	orderID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	order, err := transition(c.Request.Context(), h.TenantID(c), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToServiceOrderResponse(order))
}

// ResultUploadURL handles POST /service-orders/:id/result-upload-url
func (h *QueueHandler) ResultUploadURL(c *gin.Context) {
	orderID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ResultUploadRequest
	if !h.BindJSON(c, &req) {
		return
	}

	link, err := h.queue.ResultUploadLink(c.Request.Context(), h.TenantID(c), orderID, req.FileName, req.ContentType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, link)
}

// ResultDownloadURL handles GET /service-orders/:id/result-download-url
func (h *QueueHandler) ResultDownloadURL(c *gin.Context) {
	orderID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	url, expiresAt, err := h.queue.ResultDownloadLink(c.Request.Context(), h.TenantID(c), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := dto.ResultDownloadResponse{URL: url}
	if !expiresAt.IsZero() {
		resp.ExpiresAt = &expiresAt
	}
	h.Success(c, resp)
}
