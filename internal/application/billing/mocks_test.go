package billing

import (
	"context"
	"time"

	"github.com/clinic/backend/internal/domain/billing"
	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/registry"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Invoice Repository
// =============================================================================

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindOpenByVisitAndServiceOrders(ctx context.Context, tenantID, visitID uuid.UUID, serviceOrderIDs []uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, visitID, serviceOrderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByPatient(ctx context.Context, tenantID, patientID uuid.UUID, page shared.PageRequest) ([]billing.Invoice, int64, error) {
	args := m.Called(ctx, tenantID, patientID, page)
	return args.Get(0).([]billing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) FindByVisit(ctx context.Context, tenantID, visitID uuid.UUID) ([]billing.Invoice, error) {
	args := m.Called(ctx, tenantID, visitID)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockInvoiceRepository) Update(ctx context.Context, invoice *billing.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockInvoiceRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockInvoiceRepository) GenerateInvoiceNumber(ctx context.Context, tenantID uuid.UUID, day shared.DayWindow) (string, error) {
	args := m.Called(ctx, tenantID, day)
	return args.String(0), args.Error(1)
}

// =============================================================================
// Mock Payment Repository
// =============================================================================

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *MockPaymentRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]billing.Payment, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Get(0).([]billing.Payment), args.Error(1)
}

// =============================================================================
// Mock Service Order Repository
// =============================================================================

type MockServiceOrderRepository struct {
	mock.Mock
}

func (m *MockServiceOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*clinical.ServiceOrder, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clinical.ServiceOrder), args.Error(1)
}

func (m *MockServiceOrderRepository) FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]clinical.ServiceOrder, error) {
	args := m.Called(ctx, tenantID, ids)
	return args.Get(0).([]clinical.ServiceOrder), args.Error(1)
}

func (m *MockServiceOrderRepository) FindByDepartmentAndDay(ctx context.Context, tenantID, departmentID uuid.UUID, day string) ([]clinical.ServiceOrder, error) {
	args := m.Called(ctx, tenantID, departmentID, day)
	return args.Get(0).([]clinical.ServiceOrder), args.Error(1)
}

func (m *MockServiceOrderRepository) Create(ctx context.Context, order *clinical.ServiceOrder) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockServiceOrderRepository) Update(ctx context.Context, order *clinical.ServiceOrder) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockServiceOrderRepository) DeleteForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	return m.Called(ctx, tenantID, ids).Error(0)
}

func (m *MockServiceOrderRepository) NextQueueNumber(ctx context.Context, tenantID, departmentID uuid.UUID, day shared.DayWindow) (int, error) {
	args := m.Called(ctx, tenantID, departmentID, day)
	return args.Int(0), args.Error(1)
}

// =============================================================================
// Mock Admission Failure Repository
// =============================================================================

type MockAdmissionFailureRepository struct {
	mock.Mock
}

func (m *MockAdmissionFailureRepository) Record(ctx context.Context, failure *clinical.AdmissionFailure) error {
	return m.Called(ctx, failure).Error(0)
}

func (m *MockAdmissionFailureRepository) FindOpenByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]clinical.AdmissionFailure, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Get(0).([]clinical.AdmissionFailure), args.Error(1)
}

func (m *MockAdmissionFailureRepository) MarkResolved(ctx context.Context, tenantID, serviceOrderID uuid.UUID, at time.Time) error {
	return m.Called(ctx, tenantID, serviceOrderID, at).Error(0)
}

// =============================================================================
// Mock Directory
// =============================================================================

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) FindPatient(ctx context.Context, tenantID, id uuid.UUID) (*registry.Patient, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.Patient), args.Error(1)
}

func (m *MockDirectory) FindVisit(ctx context.Context, tenantID, id uuid.UUID) (*registry.Visit, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.Visit), args.Error(1)
}

func (m *MockDirectory) FindEmployee(ctx context.Context, tenantID, id uuid.UUID) (*registry.Employee, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.Employee), args.Error(1)
}

func (m *MockDirectory) FindService(ctx context.Context, tenantID, id uuid.UUID) (*registry.Service, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.Service), args.Error(1)
}

func (m *MockDirectory) FindDepartment(ctx context.Context, tenantID, id uuid.UUID) (*registry.Department, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.Department), args.Error(1)
}

// =============================================================================
// Mock Queue, Events and Idempotency
// =============================================================================

type MockQueueAdmitter struct {
	mock.Mock
}

func (m *MockQueueAdmitter) Enqueue(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.Admission, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clinical.Admission), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}
