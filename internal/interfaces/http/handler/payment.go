package handler

import (
	"context"

	appbilling "github.com/clinic/backend/internal/application/billing"
	"github.com/clinic/backend/internal/interfaces/http/dto"
	"github.com/clinic/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentService is the payment use case surface used by PaymentHandler
type PaymentService interface {
	AddPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, req appbilling.AddPaymentRequest) (*appbilling.AddPaymentResult, error)
	GetPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]appbilling.PaymentResponse, error)
	RetryAdmissions(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]appbilling.AdmissionOutcome, error)
}

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	BaseHandler
	payments PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// AddPayment handles POST /invoices/:id/payments. The Idempotency-Key
// header, when present, makes client retries safe.
func (h *PaymentHandler) AddPayment(c *gin.Context) {
	invoiceID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AddPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.payments.AddPayment(c.Request.Context(), h.TenantID(c), invoiceID,
		req.ToServiceRequest(h.ActorID(c), middleware.GetIdempotencyKey(c)))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// List handles GET /invoices/:id/payments
func (h *PaymentHandler) List(c *gin.Context) {
	invoiceID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	payments, err := h.payments.GetPayments(c.Request.Context(), h.TenantID(c), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// RetryAdmissions handles POST /invoices/:id/queue-admissions/retry
func (h *PaymentHandler) RetryAdmissions(c *gin.Context) {
	invoiceID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	outcomes, err := h.payments.RetryAdmissions(c.Request.Context(), h.TenantID(c), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.RetryAdmissionsResponse{InvoiceID: invoiceID, Admissions: outcomes})
}
