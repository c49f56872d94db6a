// Package queue drives paid service orders through the per-department,
// per-day queue: admission, the wait/serve state machine and the board read.
package queue

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/registry"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResultStorage issues presigned links for service result files.
type ResultStorage interface {
	// GenerateUploadURL returns a presigned PUT URL and its expiry
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL returns a presigned GET URL and its expiry
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// ServiceConfig holds the dependencies of Service. Cache, Storage, Events
// and Metrics are optional.
type ServiceConfig struct {
	OrderRepo clinical.ServiceOrderRepository
	TxScope   TransactionScope
	Directory registry.Directory
	Clock     shared.Clock
	Cache     BoardCache
	Storage   ResultStorage
	Events    shared.EventPublisher
	Metrics   *telemetry.BusinessMetrics
	Logger    *zap.Logger

	// UploadURLExpiry bounds presigned result upload links. Default: 15 minutes
	UploadURLExpiry time.Duration
}

// Service is the department queue.
type Service struct {
	orderRepo       clinical.ServiceOrderRepository
	txScope         TransactionScope
	directory       registry.Directory
	clock           shared.Clock
	cache           BoardCache
	storage         ResultStorage
	events          shared.EventPublisher
	metrics         *telemetry.BusinessMetrics
	logger          *zap.Logger
	uploadURLExpiry time.Duration
}

// NewService creates a queue Service.
func NewService(cfg ServiceConfig) *Service {
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
	expiry := cfg.UploadURLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &Service{
		orderRepo:       cfg.OrderRepo,
		txScope:         cfg.TxScope,
		directory:       cfg.Directory,
		clock:           clock,
		cache:           cfg.Cache,
		storage:         cfg.Storage,
		events:          events,
		metrics:         cfg.Metrics,
		logger:          logger,
		uploadURLExpiry: expiry,
	}
}

// Enqueue admits a paid order to its department's queue for today.
//
// An order that is unpaid, has no department or is already queued is not an
// error: the returned Admission has Admitted false and says why. The number
// is allocated and the order saved in one transaction.
func (s *Service) Enqueue(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.Admission, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "queue", "enqueue")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrServiceOrderID, orderID.String(),
	)

	var admission *clinical.Admission
	var opErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationEnqueue, nil), func(c context.Context) {
		now := s.clock.Now()
		day := shared.DayOf(now, s.clock.Location())

		opErr = s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			orders := repos.ServiceOrderRepo()
			order, err := orders.FindByIDForTenant(c, tenantID, orderID)
			if err != nil {
				return err
			}
			if reason := order.AdmissionEligibility(); reason != clinical.Eligible {
				admission = &clinical.Admission{Order: order, Reason: reason}
				return nil
			}

			number, err := orders.NextQueueNumber(c, tenantID, *order.DepartmentID, day)
			if err != nil {
				return fmt.Errorf("failed to allocate queue number: %w", err)
			}
			if err := order.Enqueue(number, day, now); err != nil {
				return err
			}
			if err := orders.Update(c, order); err != nil {
				return fmt.Errorf("failed to save service order: %w", err)
			}
			admission = &clinical.Admission{Order: order, Admitted: true}
			return nil
		})
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		return nil, opErr
	}

	if !admission.Admitted {
		telemetry.AddEvent(span, "admission_skipped", "reason", string(admission.Reason))
		return admission, nil
	}

	order := admission.Order
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDepartmentID, order.DepartmentID.String(),
		telemetry.SpanAttrQueueNumber, *order.QueueNumber,
		telemetry.SpanAttrQueueDay, order.QueueDate,
	)
	s.recordTransition(ctx, order, "enqueue")
	s.publish(ctx, order)

	s.logger.Info("Service order admitted to queue",
		zap.String("service_order_id", order.ID.String()),
		zap.String("department_id", order.DepartmentID.String()),
		zap.Int("queue_number", *order.QueueNumber),
		zap.String("queue_date", order.QueueDate),
	)
	return admission, nil
}

// StartServiceRequest carries the optional performer of the service.
type StartServiceRequest struct {
	TenantID       uuid.UUID
	ServiceOrderID uuid.UUID
	PerformedByID  *uuid.UUID
}

// StartService moves a WAITING order to IN_PROGRESS.
func (s *Service) StartService(ctx context.Context, req StartServiceRequest) (*clinical.ServiceOrder, error) {
	if req.PerformedByID != nil && *req.PerformedByID != uuid.Nil {
		if _, err := s.directory.FindEmployee(ctx, req.TenantID, *req.PerformedByID); err != nil {
			return nil, err
		}
	}
	order, err := s.transition(ctx, req.TenantID, req.ServiceOrderID, "start", func(o *clinical.ServiceOrder, now time.Time) error {
		return o.StartService(req.PerformedByID, now)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil && order.QueuedAt != nil && order.StartedAt != nil && order.DepartmentID != nil {
		s.metrics.RecordQueueWait(ctx, order.TenantID, *order.DepartmentID, order.StartedAt.Sub(*order.QueuedAt))
	}
	return order, nil
}

// CompleteService moves an IN_PROGRESS order to COMPLETED and stores the result.
func (s *Service) CompleteService(ctx context.Context, tenantID, orderID uuid.UUID, result clinical.ServiceResult) (*clinical.ServiceOrder, error) {
	return s.transition(ctx, tenantID, orderID, "complete", func(o *clinical.ServiceOrder, now time.Time) error {
		return o.CompleteService(result, now)
	})
}

// SkipPatient moves a WAITING order to SKIPPED; it keeps its number.
func (s *Service) SkipPatient(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.ServiceOrder, error) {
	return s.transition(ctx, tenantID, orderID, "skip", func(o *clinical.ServiceOrder, now time.Time) error {
		return o.Skip(now)
	})
}

// ReturnToQueue moves a SKIPPED order back to WAITING under its original number.
func (s *Service) ReturnToQueue(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.ServiceOrder, error) {
	return s.transition(ctx, tenantID, orderID, "return", func(o *clinical.ServiceOrder, now time.Time) error {
		return o.ReturnToQueue(now)
	})
}

func (s *Service) transition(
	ctx context.Context,
	tenantID, orderID uuid.UUID,
	name string,
	apply func(o *clinical.ServiceOrder, now time.Time) error,
) (*clinical.ServiceOrder, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "queue", name)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrServiceOrderID, orderID.String(),
	)

	var order *clinical.ServiceOrder
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.ServiceOrderRepo().FindByIDForTenant(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if err := apply(order, s.clock.Now()); err != nil {
			return err
		}
		if err := repos.ServiceOrderRepo().Update(ctx, order); err != nil {
			return fmt.Errorf("failed to save service order: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrQueueStatus, order.QueueStatus.String())
	s.recordTransition(ctx, order, name)
	s.publish(ctx, order)
	return order, nil
}

// GetDepartmentQueue returns the board of a department for day (YYYY-MM-DD).
// An empty day means today.
func (s *Service) GetDepartmentQueue(ctx context.Context, tenantID, departmentID uuid.UUID, day string) (*Board, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "queue", "get_department_queue")
	defer span.End()

	window := shared.Today(s.clock)
	if day != "" {
		var err error
		if window, err = shared.ParseDay(day, s.clock.Location()); err != nil {
			return nil, err
		}
	}
	key := BoardKey{TenantID: tenantID, DepartmentID: departmentID, Day: window.Key()}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDepartmentID, departmentID.String(),
		telemetry.SpanAttrQueueDay, key.Day,
	)

	dept, err := s.directory.FindDepartment(ctx, tenantID, departmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	cacheable := false
	var generation uint64
	if s.cache != nil {
		cached, gen, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("Queue board cache read failed", zap.String("board", key.String()), zap.Error(err))
		case cached != nil:
			telemetry.SetAttribute(span, "cache_hit", true)
			return cached, nil
		default:
			cacheable, generation = true, gen
		}
	}

	var board *Board
	telemetry.WithProfilingLabels(ctx, telemetry.QueueOperationLabels(telemetry.OperationQueueBoard, departmentID.String()), func(c context.Context) {
		var orders []clinical.ServiceOrder
		orders, err = s.orderRepo.FindByDepartmentAndDay(c, tenantID, departmentID, key.Day)
		if err != nil {
			return
		}
		board = newBoard(clinical.BuildDepartmentQueue(departmentID, key.Day, orders), dept.Name)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load department queue: %w", err)
	}

	if board.MultipleInProgress {
		s.logger.Warn("More than one service order in progress",
			zap.String("department_id", departmentID.String()),
			zap.String("day", key.Day),
			zap.Int("in_progress", board.Counts.InProgress),
		)
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, board, generation); err != nil {
			s.logger.Warn("Queue board cache write failed", zap.String("board", key.String()), zap.Error(err))
		}
	}
	return board, nil
}

// GetServiceOrder returns one order of the tenant.
func (s *Service) GetServiceOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.ServiceOrder, error) {
	return s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
}

// UploadLink is a presigned location for a result file. ObjectKey is what
// the client passes back as the result file URL on completion.
type UploadLink struct {
	UploadURL string    `json:"upload_url"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrStorageDisabled is returned when no result storage is configured.
var ErrStorageDisabled = shared.NewInvalidStateError("Result file storage is not configured")

// ResultUploadLink issues a presigned upload URL for an order being served.
func (s *Service) ResultUploadLink(ctx context.Context, tenantID, orderID uuid.UUID, fileName, contentType string) (*UploadLink, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "queue", "result_upload_link")
	defer span.End()

	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	name := sanitizeFileName(fileName)
	if name == "" {
		return nil, shared.NewValidationError("File name is required")
	}

	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if order.QueueStatus != clinical.QueueStatusInProgress {
		return nil, shared.NewConflictError(fmt.Sprintf("Result files can only be uploaded while the service is in progress, not %s", order.QueueStatus))
	}

	key := resultKeyPrefix(tenantID, orderID) + uuid.NewString() + "-" + name
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, s.uploadURLExpiry)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to generate upload url: %w", err)
	}
	return &UploadLink{UploadURL: url, ObjectKey: key, ExpiresAt: expiresAt}, nil
}

// ResultDownloadLink returns a presigned download URL for the result file of
// a completed order. A result file URL that does not point into our bucket
// is returned unchanged.
func (s *Service) ResultDownloadLink(ctx context.Context, tenantID, orderID uuid.UUID) (string, time.Time, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "queue", "result_download_link")
	defer span.End()

	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return "", time.Time{}, err
	}
	if order.ResultFileURL == "" {
		return "", time.Time{}, shared.NewNotFoundError("result file of service order", orderID)
	}
	if !strings.HasPrefix(order.ResultFileURL, resultKeyPrefix(tenantID, orderID)) {
		return order.ResultFileURL, time.Time{}, nil
	}
	if s.storage == nil {
		return "", time.Time{}, ErrStorageDisabled
	}
	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, order.ResultFileURL, s.uploadURLExpiry)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", time.Time{}, fmt.Errorf("failed to generate download url: %w", err)
	}
	return url, expiresAt, nil
}

func resultKeyPrefix(tenantID, orderID uuid.UUID) string {
	return path.Join("results", tenantID.String(), orderID.String()) + "/"
}

// sanitizeFileName keeps the base name and replaces characters that are
// awkward in object keys.
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func (s *Service) recordTransition(ctx context.Context, order *clinical.ServiceOrder, name string) {
	if s.metrics == nil || order.DepartmentID == nil {
		return
	}
	s.metrics.RecordQueueTransition(ctx, order.TenantID, *order.DepartmentID, name)
}

// publish sends the order's pending events after commit. A failed publish
// is logged; the committed change stands.
func (s *Service) publish(ctx context.Context, order *clinical.ServiceOrder) {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish queue events",
			zap.String("service_order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}
