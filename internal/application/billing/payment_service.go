package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinic/backend/internal/domain/billing"
	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/registry"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QueueAdmitter admits a paid service order to its department queue.
// It is implemented by the department queue service.
type QueueAdmitter interface {
	Enqueue(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.Admission, error)
}

// ErrDuplicatePayment is returned when an Idempotency-Key was already used.
var ErrDuplicatePayment = shared.NewConflictError("A payment with this idempotency key was already submitted")

// PaymentServiceConfig holds the dependencies of PaymentService.
// Idempotency, Events and Metrics are optional.
type PaymentServiceConfig struct {
	InvoiceRepo billing.InvoiceRepository
	PaymentRepo billing.PaymentRepository
	FailureRepo clinical.AdmissionFailureRepository
	TxScope     TransactionScope
	Queue       QueueAdmitter
	Directory   registry.Directory
	Clock       shared.Clock
	Idempotency shared.IdempotencyStore
	Events      shared.EventPublisher
	Metrics     *telemetry.BusinessMetrics
	Logger      *zap.Logger

	// IdempotencyTTL is how long a payment key blocks a repeat. Default: 24 hours
	IdempotencyTTL time.Duration
}

// PaymentService is the payment processor. It records payments and, when a
// payment settles an invoice, admits the billed service orders to their
// department queues.
type PaymentService struct {
	invoiceRepo    billing.InvoiceRepository
	paymentRepo    billing.PaymentRepository
	failureRepo    clinical.AdmissionFailureRepository
	txScope        TransactionScope
	queue          QueueAdmitter
	directory      registry.Directory
	clock          shared.Clock
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	events         shared.EventPublisher
	metrics        *telemetry.BusinessMetrics
	logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(cfg PaymentServiceConfig) *PaymentService {
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
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return &PaymentService{
		invoiceRepo:    cfg.InvoiceRepo,
		paymentRepo:    cfg.PaymentRepo,
		failureRepo:    cfg.FailureRepo,
		txScope:        cfg.TxScope,
		queue:          cfg.Queue,
		directory:      cfg.Directory,
		clock:          clock,
		idempotency:    cfg.Idempotency,
		idempotencyTTL: ttl,
		events:         events,
		metrics:        cfg.Metrics,
		logger:         logger,
	}
}

// AddPayment records a payment against an invoice.
//
// The payment row, the invoice totals and the payment status of the billed
// service orders are written in one transaction. If the payment settles the
// invoice, each billed order is then admitted to its queue on its own; an
// admission failure is recorded and reported in the result but never undoes
// the payment.
func (s *PaymentService) AddPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, req AddPaymentRequest) (*AddPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "add_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrPaymentMethod, string(req.Method),
	)

	if req.PaidByID == uuid.Nil {
		return nil, shared.NewValidationError("Payment recipient is required")
	}
	if _, err := s.directory.FindEmployee(ctx, tenantID, req.PaidByID); err != nil {
		return nil, err
	}

	release, err := s.claimIdempotencyKey(ctx, tenantID, req.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		inv     *billing.Invoice
		payment *billing.Payment
		settled bool
		opErr   error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.BillingOperationLabels(telemetry.OperationAddPayment), func(c context.Context) {
		opErr = s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			if inv, err = repos.InvoiceRepo().FindByIDForTenant(c, tenantID, invoiceID); err != nil {
				return err
			}
			wasPaid := inv.IsPaid()
			now := s.clock.Now()
			if payment, err = inv.RecordPayment(billing.RecordPaymentParams{
				Amount:        req.Amount,
				Method:        req.Method,
				TransactionID: req.TransactionID,
				Notes:         req.Notes,
				PaidByID:      req.PaidByID,
			}, now); err != nil {
				return err
			}
			settled = !wasPaid && inv.IsPaid()

			if err := repos.PaymentRepo().Create(c, payment); err != nil {
				return fmt.Errorf("failed to save payment: %w", err)
			}
			if err := repos.InvoiceRepo().Update(c, inv); err != nil {
				return fmt.Errorf("failed to save invoice: %w", err)
			}
			return mirrorPaymentStatus(c, repos.ServiceOrderRepo(), inv, now)
		})
	})
	if opErr != nil {
		release()
		telemetry.RecordError(span, opErr)
		return nil, opErr
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID.String(),
		telemetry.SpanAttrInvoiceStatus, inv.Status.String(),
	)
	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, tenantID, payment.Method.String(), string(payment.Currency), payment.Amount)
		if settled {
			s.metrics.RecordInvoiceSettled(ctx, tenantID)
		}
	}
	publishInvoiceEvents(ctx, s.events, s.logger, inv)

	s.logger.Info("Payment recorded",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.String("method", payment.Method.String()),
		zap.String("status", inv.Status.String()),
	)

	result := &AddPaymentResult{
		Payment:    ToPaymentResponse(payment),
		Invoice:    ToInvoiceResponse(inv),
		Admissions: []AdmissionOutcome{},
	}
	if settled {
		result.Admissions = s.admit(ctx, inv, false)
	}
	return result, nil
}

// claimIdempotencyKey marks key as used. The returned release func forgets
// it again so a payment that failed can be resubmitted with the same key.
func (s *PaymentService) claimIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (func(), error) {
	noop := func() {}
	if key == "" || s.idempotency == nil {
		return noop, nil
	}
	scoped := fmt.Sprintf("payment:%s:%s", tenantID, key)
	fresh, err := s.idempotency.MarkProcessed(ctx, scoped, s.idempotencyTTL)
	if err != nil {
		return noop, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if !fresh {
		s.logger.Info("Duplicate payment submission rejected", zap.String("idempotency_key", key))
		return noop, ErrDuplicatePayment
	}
	return func() {
		if err := s.idempotency.Release(ctx, scoped); err != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(err))
		}
	}, nil
}

// GetPayments lists an invoice's payments, newest first
func (s *PaymentService) GetPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	if _, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID); err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.FindByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return ToPaymentResponses(payments), nil
}

// RetryAdmissions admits the service orders of a PAID invoice that are
// still outside their queue and closes their recorded failures. It is only
// ever called explicitly.
func (s *PaymentService) RetryAdmissions(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]AdmissionOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "retry_admissions")
	defer span.End()

	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.IsPaid() {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("Queue admission can only be retried for a PAID invoice, not %s", inv.Status))
	}

	var outcomes []AdmissionOutcome
	telemetry.WithProfilingLabels(ctx, telemetry.BillingOperationLabels(telemetry.OperationRetryAdmissions), func(c context.Context) {
		outcomes = s.admit(c, inv, true)
	})
	return outcomes, nil
}

// admit enqueues every service order billed by a settled invoice. Each
// attempt is independent: a failure is persisted, counted and logged, and
// the loop continues. With resolve set, orders that end up queued have
// their open failures closed.
func (s *PaymentService) admit(ctx context.Context, inv *billing.Invoice, resolve bool) []AdmissionOutcome {
	ids := inv.ServiceOrderIDs()
	outcomes := make([]AdmissionOutcome, 0, len(ids))
	for _, orderID := range ids {
		outcome := s.admitOne(ctx, inv, orderID)
		outcomes = append(outcomes, outcome)

		queued := outcome.Admitted || (outcome.Skipped && outcome.QueueNumber != nil)
		if resolve && queued && s.failureRepo != nil {
			if err := s.failureRepo.MarkResolved(ctx, inv.TenantID, orderID, s.clock.Now()); err != nil {
				s.logger.Warn("Failed to resolve queue admission failure",
					zap.String("service_order_id", orderID.String()),
					zap.Error(err),
				)
			}
		}
	}
	return outcomes
}

func (s *PaymentService) admitOne(ctx context.Context, inv *billing.Invoice, orderID uuid.UUID) AdmissionOutcome {
	outcome := AdmissionOutcome{ServiceOrderID: orderID}

	admission, err := s.queue.Enqueue(ctx, inv.TenantID, orderID)
	if err != nil {
		outcome.Reason = err.Error()
		s.recordFailure(ctx, inv, orderID, err)
		return outcome
	}

	order := admission.Order
	if order != nil {
		outcome.QueueNumber = order.QueueNumber
		outcome.QueueDate = order.QueueDate
		outcome.DepartmentID = order.DepartmentID
	}
	if !admission.Admitted {
		outcome.Skipped = true
		outcome.Reason = string(admission.Reason)
		if s.metrics != nil {
			s.metrics.RecordAdmission(ctx, inv.TenantID, telemetry.AdmissionSkipped, outcome.Reason)
		}
		return outcome
	}

	outcome.Admitted = true
	if s.metrics != nil {
		s.metrics.RecordAdmission(ctx, inv.TenantID, telemetry.AdmissionAdmitted, "")
	}
	return outcome
}

func (s *PaymentService) recordFailure(ctx context.Context, inv *billing.Invoice, orderID uuid.UUID, cause error) {
	s.logger.Warn("Queue admission failed after settlement",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("service_order_id", orderID.String()),
		zap.Error(cause),
	)
	if s.metrics != nil {
		s.metrics.RecordAdmission(ctx, inv.TenantID, telemetry.AdmissionFailed, failureReason(cause))
	}
	if s.failureRepo == nil {
		return
	}
	failure := clinical.NewAdmissionFailure(inv.TenantID, inv.ID, orderID, cause.Error(), s.clock.Now())
	if err := s.failureRepo.Record(ctx, failure); err != nil {
		s.logger.Error("Failed to record queue admission failure",
			zap.String("service_order_id", orderID.String()),
			zap.Error(err),
		)
	}
}

// failureReason is a low-cardinality metric label for an admission error.
func failureReason(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal"
}
