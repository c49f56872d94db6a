package handler

import (
	"context"

	appbilling "github.com/clinic/backend/internal/application/billing"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceService is the invoice use case surface used by InvoiceHandler
type InvoiceService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req appbilling.CreateInvoiceRequest) (*appbilling.CreateInvoiceResult, error)
	Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*appbilling.InvoiceResponse, error)
	ListByPatient(ctx context.Context, tenantID, patientID uuid.UUID, page shared.PageRequest) (*shared.Paginated[appbilling.InvoiceResponse], error)
	ListByVisit(ctx context.Context, tenantID, visitID uuid.UUID) ([]appbilling.InvoiceResponse, error)
	AddItem(ctx context.Context, tenantID, invoiceID, actorID uuid.UUID, item appbilling.InvoiceItemInput) (*appbilling.InvoiceResponse, error)
	RemoveItem(ctx context.Context, tenantID, invoiceID, itemID uuid.UUID) (*appbilling.InvoiceResponse, error)
	Update(ctx context.Context, tenantID, invoiceID uuid.UUID, req appbilling.UpdateInvoiceRequest) (*appbilling.InvoiceResponse, error)
	Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error
	MarkRefunded(ctx context.Context, tenantID, invoiceID uuid.UUID) (*appbilling.InvoiceResponse, error)
}

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	invoices InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Create handles POST /invoices. A fresh invoice answers 201; an open
// invoice that already bills the requested orders answers 200 with
// already_exists set.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.invoices.Create(c.Request.Context(), h.TenantID(c), req.ToServiceRequest(h.ActorID(c)))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.CreateInvoiceResponse{InvoiceResponse: *result.Invoice, AlreadyExists: result.AlreadyExists()}
	if result.AlreadyExists() {
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.Get(c.Request.Context(), h.TenantID(c), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// ListByPatient handles GET /patients/:id/invoices
func (h *InvoiceHandler) ListByPatient(c *gin.Context) {
	patientID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if !h.BindQuery(c, &q) {
		return
	}

	page, err := h.invoices.ListByPatient(c.Request.Context(), h.TenantID(c), patientID,
		shared.PageRequest{Page: q.Page, PageSize: q.PageSize, OrderBy: q.SortBy, OrderDir: q.Order})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// ListByVisit handles GET /visits/:id/invoices
func (h *InvoiceHandler) ListByVisit(c *gin.Context) {
	visitID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	invoices, err := h.invoices.ListByVisit(c.Request.Context(), h.TenantID(c), visitID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoices)
}

// Update handles PUT /invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	invoiceID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.invoices.Update(c.Request.Context(), h.TenantID(c), invoiceID, req.ToServiceRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// Delete handles DELETE /invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	invoiceID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.invoices.Delete(c.Request.Context(), h.TenantID(c), invoiceID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddItem handles POST /invoices/:id/items
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	invoiceID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.InvoiceItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.invoices.AddItem(c.Request.Context(), h.TenantID(c), invoiceID, h.ActorID(c), req.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// RemoveItem handles DELETE /invoices/:id/items/:itemId
func (h *InvoiceHandler) RemoveItem(c *gin.Context) {
	invoiceID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.ParamUUID(c, "itemId")
	if !ok {
		return
	}

	inv, err := h.invoices.RemoveItem(c.Request.Context(), h.TenantID(c), invoiceID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// Refund handles POST /invoices/:id/refund
func (h *InvoiceHandler) Refund(c *gin.Context) {
	invoiceID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.MarkRefunded(c.Request.Context(), h.TenantID(c), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}
