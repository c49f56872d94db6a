// Package billing implements the invoice ledger and the payment processor.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/clinic/backend/internal/domain/billing"
	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/registry"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/shared/valueobject"
	"github.com/clinic/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceServiceConfig holds the dependencies of InvoiceService.
// Events and Metrics are optional.
type InvoiceServiceConfig struct {
	InvoiceRepo billing.InvoiceRepository
	OrderRepo   clinical.ServiceOrderRepository
	TxScope     TransactionScope
	Directory   registry.Directory
	Clock       shared.Clock
	Events      shared.EventPublisher
	Metrics     *telemetry.BusinessMetrics
	Logger      *zap.Logger

	// Currency of new invoices. Default: valueobject.DefaultCurrency
	Currency valueobject.Currency
}

// InvoiceService is the invoice ledger.
type InvoiceService struct {
	invoiceRepo billing.InvoiceRepository
	orderRepo   clinical.ServiceOrderRepository
	txScope     TransactionScope
	directory   registry.Directory
	clock       shared.Clock
	events      shared.EventPublisher
	metrics     *telemetry.BusinessMetrics
	logger      *zap.Logger
	currency    valueobject.Currency
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(cfg InvoiceServiceConfig) *InvoiceService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := cfg.Events
	if events == nil {
		events = shared.NoopEventPublisher{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = shared.NewSystemClock(time.Local)
	}
	currency := cfg.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &InvoiceService{
		invoiceRepo: cfg.InvoiceRepo,
		orderRepo:   cfg.OrderRepo,
		txScope:     cfg.TxScope,
		directory:   cfg.Directory,
		clock:       clock,
		events:      events,
		metrics:     cfg.Metrics,
		logger:      logger,
		currency:    currency,
	}
}

// resolvedLine is a requested line after catalog lookup.
type resolvedLine struct {
	spec    billing.LineSpec
	service *registry.Service
}

// Create creates an invoice, provisioning a service order for every line
// that does not reference one.
//
// When a visit is given and a line references a service order that an open
// invoice of the same visit already bills, that invoice is returned
// unchanged with Outcome CreateOutcomeAlreadyExists.
func (s *InvoiceService) Create(ctx context.Context, tenantID uuid.UUID, req CreateInvoiceRequest) (*CreateInvoiceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "create_invoice")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPatientID, req.PatientID.String(),
		telemetry.SpanAttrItemCount, len(req.Items),
	)

	if len(req.Items) == 0 {
		return nil, shared.NewValidationError("Invoice must have at least one item")
	}
	if req.CreatedByID == uuid.Nil {
		return nil, shared.NewValidationError("Invoice author is required")
	}

	if _, err := s.directory.FindPatient(ctx, tenantID, req.PatientID); err != nil {
		return nil, err
	}
	var visit *registry.Visit
	if req.VisitID != nil {
		var err error
		if visit, err = s.directory.FindVisit(ctx, tenantID, *req.VisitID); err != nil {
			return nil, err
		}
		if visit.PatientID != req.PatientID {
			return nil, shared.NewValidationError("Visit does not belong to the patient")
		}
	}
	if _, err := s.directory.FindEmployee(ctx, tenantID, req.CreatedByID); err != nil {
		return nil, err
	}

	if existing, err := s.findOpenDuplicate(ctx, tenantID, req); err != nil {
		return nil, err
	} else if existing != nil {
		telemetry.AddEvent(span, "invoice_already_exists", telemetry.SpanAttrInvoiceID, existing.ID.String())
		s.logger.Info("Open invoice already bills the requested service orders",
			zap.String("invoice_id", existing.ID.String()),
			zap.String("visit_id", req.VisitID.String()),
		)
		resp := ToInvoiceResponse(existing)
		return &CreateInvoiceResult{Outcome: CreateOutcomeAlreadyExists, Invoice: &resp}, nil
	}

	lines := make([]resolvedLine, 0, len(req.Items))
	for i, item := range req.Items {
		line, err := s.resolveLine(ctx, tenantID, req.PatientID, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		lines = append(lines, *line)
	}

	var invoice *billing.Invoice
	var opErr error
	telemetry.WithProfilingLabels(ctx, telemetry.BillingOperationLabels(telemetry.OperationCreateInvoice), func(c context.Context) {
		now := s.clock.Now()
		opErr = s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			number, err := repos.InvoiceRepo().GenerateInvoiceNumber(c, tenantID, shared.DayOf(now, s.clock.Location()))
			if err != nil {
				return fmt.Errorf("failed to generate invoice number: %w", err)
			}

			specs := make([]billing.LineSpec, len(lines))
			for i := range lines {
				if specs[i], err = s.provisionOrder(c, repos.ServiceOrderRepo(), tenantID, req.PatientID, req.VisitID, visit, req.CreatedByID, lines[i], now); err != nil {
					return err
				}
			}

			invoice, err = billing.NewInvoice(billing.NewInvoiceParams{
				TenantID:      tenantID,
				InvoiceNumber: number,
				PatientID:     req.PatientID,
				VisitID:       req.VisitID,
				Currency:      s.currency,
				Notes:         req.Notes,
				DueDate:       req.DueDate,
				CreatedByID:   req.CreatedByID,
				Lines:         specs,
			}, now)
			if err != nil {
				return err
			}
			if err := repos.InvoiceRepo().Create(c, invoice); err != nil {
				return fmt.Errorf("failed to save invoice: %w", err)
			}
			return nil
		})
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		return nil, opErr
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrInvoiceNumber, invoice.InvoiceNumber,
	)
	if s.metrics != nil {
		s.metrics.RecordInvoiceCreated(ctx, tenantID)
	}
	s.publish(ctx, invoice)

	s.logger.Info("Invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total_amount", invoice.TotalAmount.String()),
		zap.Int("item_count", len(invoice.Items)),
	)
	resp := ToInvoiceResponse(invoice)
	return &CreateInvoiceResult{Outcome: CreateOutcomeCreated, Invoice: &resp}, nil
}

func (s *InvoiceService) findOpenDuplicate(ctx context.Context, tenantID uuid.UUID, req CreateInvoiceRequest) (*billing.Invoice, error) {
	if req.VisitID == nil {
		return nil, nil
	}
	orderIDs := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ServiceOrderID != nil && *item.ServiceOrderID != uuid.Nil {
			orderIDs = append(orderIDs, *item.ServiceOrderID)
		}
	}
	if len(orderIDs) == 0 {
		return nil, nil
	}
	existing, err := s.invoiceRepo.FindOpenByVisitAndServiceOrders(ctx, tenantID, *req.VisitID, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check for an open invoice: %w", err)
	}
	return existing, nil
}

// resolveLine looks the service up in the catalog, defaults the unit price
// and checks a referenced service order.
func (s *InvoiceService) resolveLine(ctx context.Context, tenantID, patientID uuid.UUID, item InvoiceItemInput) (*resolvedLine, error) {
	service, err := s.directory.FindService(ctx, tenantID, item.ServiceID)
	if err != nil {
		return nil, err
	}

	var price = item.UnitPrice
	if price == nil {
		if !service.HasPrice() {
			return nil, shared.NewValidationError(fmt.Sprintf("Service %s has no catalog price; a unit price is required", service.ID))
		}
		price = service.Price
	}
	quantity := item.Quantity
	if quantity == 0 {
		quantity = 1
	}

	if item.ServiceOrderID != nil && *item.ServiceOrderID != uuid.Nil {
		order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, *item.ServiceOrderID)
		if err != nil {
			return nil, err
		}
		if order.PatientID != patientID {
			return nil, shared.NewValidationError("Service order belongs to another patient")
		}
		if order.ServiceID != item.ServiceID {
			return nil, shared.NewValidationError("Service order is for a different service")
		}
	} else {
		item.ServiceOrderID = nil
	}

	return &resolvedLine{
		spec: billing.LineSpec{
			ServiceID:      item.ServiceID,
			ServiceOrderID: item.ServiceOrderID,
			Quantity:       quantity,
			UnitPrice:      *price,
			Discount:       item.Discount,
		},
		service: service,
	}, nil
}

// provisionOrder creates the service order of a line that does not reference
// one. The visit's doctor is preferred; the invoice author is the fallback.
func (s *InvoiceService) provisionOrder(
	ctx context.Context,
	orders clinical.ServiceOrderRepository,
	tenantID, patientID uuid.UUID,
	visitID *uuid.UUID,
	visit *registry.Visit,
	authorID uuid.UUID,
	line resolvedLine,
	now time.Time,
) (billing.LineSpec, error) {
	spec := line.spec
	if spec.ServiceOrderID != nil {
		return spec, nil
	}
	order, err := clinical.NewServiceOrder(clinical.NewServiceOrderParams{
		TenantID:     tenantID,
		PatientID:    patientID,
		VisitID:      visitID,
		DoctorID:     visit.AssignedDoctor(authorID),
		ServiceID:    spec.ServiceID,
		DepartmentID: line.service.DepartmentID,
	}, now)
	if err != nil {
		return spec, err
	}
	if err := orders.Create(ctx, order); err != nil {
		return spec, fmt.Errorf("failed to create service order: %w", err)
	}
	id := order.ID
	spec.ServiceOrderID = &id
	spec.ProvisionedOrder = true
	return spec, nil
}

// Get returns an invoice with its items and payments
func (s *InvoiceService) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// ListByPatient returns a page of the patient's invoices, newest first
func (s *InvoiceService) ListByPatient(ctx context.Context, tenantID, patientID uuid.UUID, page shared.PageRequest) (*shared.Paginated[InvoiceResponse], error) {
	if _, err := s.directory.FindPatient(ctx, tenantID, patientID); err != nil {
		return nil, err
	}
	page = page.Normalize()
	invoices, total, err := s.invoiceRepo.FindByPatient(ctx, tenantID, patientID, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	result := shared.NewPaginated(ToInvoiceResponses(invoices), total, page.Page, page.PageSize)
	return &result, nil
}

// ListByVisit returns every invoice of a visit, newest first
func (s *InvoiceService) ListByVisit(ctx context.Context, tenantID, visitID uuid.UUID) ([]InvoiceResponse, error) {
	if _, err := s.directory.FindVisit(ctx, tenantID, visitID); err != nil {
		return nil, err
	}
	invoices, err := s.invoiceRepo.FindByVisit(ctx, tenantID, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return ToInvoiceResponses(invoices), nil
}

// AddItem adds a line to an unpaid or partially paid invoice. A service order
// is provisioned for the line when it does not reference one.
func (s *InvoiceService) AddItem(ctx context.Context, tenantID, invoiceID, actorID uuid.UUID, item InvoiceItemInput) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "add_item")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
	)

	inv, err := s.mutate(ctx, tenantID, invoiceID, func(c context.Context, repos TransactionalRepositories, inv *billing.Invoice, now time.Time) error {
		if !inv.Status.CanModify() {
			return shared.NewInvalidStateError(fmt.Sprintf("Cannot add items to an invoice in %s status", inv.Status))
		}
		line, err := s.resolveLine(c, tenantID, inv.PatientID, item)
		if err != nil {
			return err
		}
		var visit *registry.Visit
		if inv.VisitID != nil && line.spec.ServiceOrderID == nil {
			if visit, err = s.directory.FindVisit(c, tenantID, *inv.VisitID); err != nil {
				return err
			}
		}
		author := actorID
		if author == uuid.Nil {
			author = inv.CreatedByID
		}
		spec, err := s.provisionOrder(c, repos.ServiceOrderRepo(), tenantID, inv.PatientID, inv.VisitID, visit, author, *line, now)
		if err != nil {
			return err
		}
		_, err = inv.AddItem(spec, now)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// RemoveItem removes a line. A service order provisioned for the line is
// deleted with it while it is still untouched.
func (s *InvoiceService) RemoveItem(ctx context.Context, tenantID, invoiceID, itemID uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "remove_item")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
	)

	var inv *billing.Invoice
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if inv, err = repos.InvoiceRepo().FindByIDForTenant(ctx, tenantID, invoiceID); err != nil {
			return err
		}
		removed, err := inv.RemoveItem(itemID, s.clock.Now())
		if err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Update(ctx, inv); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		if !removed.OwnsServiceOrder() {
			return nil
		}

		order, err := repos.ServiceOrderRepo().FindByIDForTenant(ctx, tenantID, *removed.ServiceOrderID)
		if err != nil {
			return err
		}
		if !order.IsDeletable() {
			return nil
		}
		if err := repos.ServiceOrderRepo().DeleteForTenant(ctx, tenantID, []uuid.UUID{order.ID}); err != nil {
			return fmt.Errorf("failed to delete service order: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, inv)
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// Update changes the notes and/or due date of an unpaid or partially paid invoice
func (s *InvoiceService) Update(ctx context.Context, tenantID, invoiceID uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	inv, err := s.mutate(ctx, tenantID, invoiceID, func(_ context.Context, _ TransactionalRepositories, inv *billing.Invoice, now time.Time) error {
		return inv.Update(req.Notes, req.DueDate, now)
	})
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// Delete hard-deletes an invoice without payments, together with the
// service orders it provisioned that were never paid, queued or started.
func (s *InvoiceService) Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "delete_invoice")
	defer span.End()

	var deletedOrders int
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForTenant(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.EnsureDeletable(); err != nil {
			return err
		}

		var orphanIDs []uuid.UUID
		if ids := inv.ProvisionedServiceOrderIDs(); len(ids) > 0 {
			orders, err := repos.ServiceOrderRepo().FindByIDsForTenant(ctx, tenantID, ids)
			if err != nil {
				return fmt.Errorf("failed to load service orders: %w", err)
			}
			for i := range orders {
				if orders[i].IsDeletable() {
					orphanIDs = append(orphanIDs, orders[i].ID)
				}
			}
		}

		if err := repos.InvoiceRepo().DeleteForTenant(ctx, tenantID, invoiceID); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		if len(orphanIDs) > 0 {
			if err := repos.ServiceOrderRepo().DeleteForTenant(ctx, tenantID, orphanIDs); err != nil {
				return fmt.Errorf("failed to delete service orders: %w", err)
			}
		}
		deletedOrders = len(orphanIDs)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.logger.Info("Invoice deleted",
		zap.String("invoice_id", invoiceID.String()),
		zap.Int("deleted_service_orders", deletedOrders),
	)
	return nil
}

// MarkRefunded flags a paid or partially paid invoice as REFUNDED and
// mirrors the status onto its service orders. No money is moved.
func (s *InvoiceService) MarkRefunded(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "mark_refunded")
	defer span.End()

	inv, err := s.mutate(ctx, tenantID, invoiceID, func(c context.Context, repos TransactionalRepositories, inv *billing.Invoice, now time.Time) error {
		if err := inv.MarkRefunded(now); err != nil {
			return err
		}
		return mirrorPaymentStatus(c, repos.ServiceOrderRepo(), inv, now)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// mutate loads an invoice, applies fn and saves it in one transaction, then
// publishes the invoice's events.
func (s *InvoiceService) mutate(
	ctx context.Context,
	tenantID, invoiceID uuid.UUID,
	fn func(c context.Context, repos TransactionalRepositories, inv *billing.Invoice, now time.Time) error,
) (*billing.Invoice, error) {
	var inv *billing.Invoice
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if inv, err = repos.InvoiceRepo().FindByIDForTenant(ctx, tenantID, invoiceID); err != nil {
			return err
		}
		if err := fn(ctx, repos, inv, s.clock.Now()); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Update(ctx, inv); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, inv)
	return inv, nil
}

func (s *InvoiceService) publish(ctx context.Context, inv *billing.Invoice) {
	publishInvoiceEvents(ctx, s.events, s.logger, inv)
}

// publishInvoiceEvents sends pending events after commit. A failed publish
// is logged; the committed change stands.
func publishInvoiceEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, inv *billing.Invoice) {
	events := inv.GetDomainEvents()
	inv.ClearDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish invoice events",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err),
		)
	}
}

// orderPaymentStatus maps an invoice status onto the service orders it bills.
func orderPaymentStatus(status billing.InvoiceStatus) clinical.PaymentStatus {
	switch status {
	case billing.InvoiceStatusPaid:
		return clinical.PaymentStatusPaid
	case billing.InvoiceStatusPartiallyPaid:
		return clinical.PaymentStatusPartiallyPaid
	case billing.InvoiceStatusRefunded:
		return clinical.PaymentStatusRefunded
	default:
		return clinical.PaymentStatusUnpaid
	}
}

// mirrorPaymentStatus copies the invoice status onto every linked service
// order whose payment status differs. It runs inside the caller's transaction.
func mirrorPaymentStatus(ctx context.Context, orders clinical.ServiceOrderRepository, inv *billing.Invoice, now time.Time) error {
	ids := inv.ServiceOrderIDs()
	if len(ids) == 0 {
		return nil
	}
	linked, err := orders.FindByIDsForTenant(ctx, inv.TenantID, ids)
	if err != nil {
		return fmt.Errorf("failed to load service orders: %w", err)
	}
	status := orderPaymentStatus(inv.Status)
	for i := range linked {
		if !linked[i].SetPaymentStatus(status, now) {
			continue
		}
		if err := orders.Update(ctx, &linked[i]); err != nil {
			return fmt.Errorf("failed to update service order payment status: %w", err)
		}
	}
	return nil
}
