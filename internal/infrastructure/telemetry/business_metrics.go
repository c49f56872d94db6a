// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks invoice settlement and department queue activity.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics
	invoiceCreatedTotal  *Counter
	invoiceSettledTotal  *Counter
	paymentTotal         *Counter
	paymentAmountTotal   *Counter
	queueAdmissionTotal  *Counter
	queueTransitionTotal *Counter

	// Histogram metrics
	queueWaitSeconds *Histogram

	// Gauge metrics
	queueWaitingPatients *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	queueProvider QueueMetricsProvider
}

// WaitingCount is the number of waiting patients in one department today.
type WaitingCount struct {
	TenantID     uuid.UUID
	DepartmentID uuid.UUID
	Waiting      int64
}

// QueueMetricsProvider supplies queue state for periodic gauge collection.
// It keeps the telemetry layer free of any dependency on the clinical domain.
type QueueMetricsProvider interface {
	// WaitingCounts returns today's waiting patients grouped by tenant and department.
	WaitingCounts(ctx context.Context) ([]WaitingCount, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter         metric.Meter
	Logger        *zap.Logger
	QueueProvider QueueMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		queueProvider: cfg.QueueProvider,
	}

	var err error

	// Billing metrics
	if bm.invoiceCreatedTotal, err = NewCounter(cfg.Meter,
		"clinic_invoice_created_total", "Total number of invoices created", "{invoices}"); err != nil {
		return nil, err
	}
	if bm.invoiceSettledTotal, err = NewCounter(cfg.Meter,
		"clinic_invoice_settled_total", "Total number of invoices paid in full", "{invoices}"); err != nil {
		return nil, err
	}
	if bm.paymentTotal, err = NewCounter(cfg.Meter,
		"clinic_payment_total", "Total number of payments recorded", "{payments}"); err != nil {
		return nil, err
	}
	if bm.paymentAmountTotal, err = NewCounter(cfg.Meter,
		"clinic_payment_amount_total", "Total payment amount in minor currency units", "{minor_units}"); err != nil {
		return nil, err
	}

	// Queue metrics
	if bm.queueAdmissionTotal, err = NewCounter(cfg.Meter,
		"clinic_queue_admission_total", "Queue admission attempts after settlement", "{admissions}"); err != nil {
		return nil, err
	}
	if bm.queueTransitionTotal, err = NewCounter(cfg.Meter,
		"clinic_queue_transition_total", "Queue status transitions", "{transitions}"); err != nil {
		return nil, err
	}
	if bm.queueWaitSeconds, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "clinic_queue_wait_seconds",
		Description: "Time between admission and the start of service",
		Unit:        "s",
		Boundaries:  WaitDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.queueWaitingPatients, err = NewGauge(cfg.Meter,
		"clinic_queue_waiting_patients", "Patients currently waiting per department", "{patients}"); err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Billing Metrics
// =============================================================================

// RecordInvoiceCreated records a newly created invoice.
func (bm *BusinessMetrics) RecordInvoiceCreated(ctx context.Context, tenantID uuid.UUID) {
	bm.invoiceCreatedTotal.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordPayment records a payment and its amount. The amount is reported in
// minor units (amount * 100, truncated).
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, tenantID uuid.UUID, method, currency string, amount decimal.Decimal) {
	bm.paymentTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPaymentMethod.String(method),
	)
	bm.paymentAmountTotal.Add(ctx, amount.Mul(decimal.NewFromInt(100)).IntPart(),
		AttrTenantID.String(tenantID.String()),
		AttrCurrency.String(currency),
	)
}

// RecordInvoiceSettled records an invoice reaching PAID.
func (bm *BusinessMetrics) RecordInvoiceSettled(ctx context.Context, tenantID uuid.UUID) {
	bm.invoiceSettledTotal.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// =============================================================================
// Queue Metrics
// =============================================================================

// AdmissionResult is the outcome label of a queue admission attempt.
type AdmissionResult string

const (
	AdmissionAdmitted AdmissionResult = "admitted"
	AdmissionSkipped  AdmissionResult = "skipped"
	AdmissionFailed   AdmissionResult = "failed"
)

// RecordAdmission records the outcome of admitting one service order after settlement.
// reason is empty for successful admissions.
func (bm *BusinessMetrics) RecordAdmission(ctx context.Context, tenantID uuid.UUID, result AdmissionResult, reason string) {
	bm.queueAdmissionTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrAdmissionResult.String(string(result)),
		AttrAdmissionReason.String(reason),
	)
}

// RecordQueueTransition records a queue status change such as "start" or "skip".
func (bm *BusinessMetrics) RecordQueueTransition(ctx context.Context, tenantID, departmentID uuid.UUID, transition string) {
	bm.queueTransitionTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrDepartmentID.String(departmentID.String()),
		AttrQueueTransition.String(transition),
	)
}

// RecordQueueWait records how long a patient waited before service started.
func (bm *BusinessMetrics) RecordQueueWait(ctx context.Context, tenantID, departmentID uuid.UUID, wait time.Duration) {
	bm.queueWaitSeconds.RecordDuration(ctx, wait,
		AttrTenantID.String(tenantID.String()),
		AttrDepartmentID.String(departmentID.String()),
	)
}

// RecordWaitingPatients records the current number of waiting patients in a department.
func (bm *BusinessMetrics) RecordWaitingPatients(ctx context.Context, tenantID, departmentID uuid.UUID, waiting int64) {
	bm.queueWaitingPatients.Record(ctx, waiting,
		AttrTenantID.String(tenantID.String()),
		AttrDepartmentID.String(departmentID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts collecting gauge metrics every interval
// (default: 1 minute). It is non-blocking; use Stop to end collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectQueueMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectQueueMetrics(ctx)
		}
	}
}

// CollectOnce runs a single gauge collection pass.
func (bm *BusinessMetrics) CollectOnce(ctx context.Context) {
	bm.collectQueueMetrics(ctx)
}

func (bm *BusinessMetrics) collectQueueMetrics(ctx context.Context) {
	if bm.queueProvider == nil {
		bm.logger.Debug("No queue provider configured, skipping queue metrics collection")
		return
	}

	counts, err := bm.queueProvider.WaitingCounts(ctx)
	if err != nil {
		bm.logger.Warn("Failed to collect waiting counts", zap.Error(err))
		return
	}
	for _, c := range counts {
		bm.RecordWaitingPatients(ctx, c.TenantID, c.DepartmentID, c.Waiting)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
