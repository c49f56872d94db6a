package handler

import (
	"context"
	"time"

	appbilling "github.com/clinic/backend/internal/application/billing"
	appqueue "github.com/clinic/backend/internal/application/queue"
	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Invoice Service
// =============================================================================

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Create(ctx context.Context, tenantID uuid.UUID, req appbilling.CreateInvoiceRequest) (*appbilling.CreateInvoiceResult, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appbilling.CreateInvoiceResult), args.Error(1)
}

func (m *MockInvoiceService) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*appbilling.InvoiceResponse, error) {
	return invoiceResult(m.Called(ctx, tenantID, invoiceID))
}

func (m *MockInvoiceService) ListByPatient(ctx context.Context, tenantID, patientID uuid.UUID, page shared.PageRequest) (*shared.Paginated[appbilling.InvoiceResponse], error) {
	args := m.Called(ctx, tenantID, patientID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[appbilling.InvoiceResponse]), args.Error(1)
}

func (m *MockInvoiceService) ListByVisit(ctx context.Context, tenantID, visitID uuid.UUID) ([]appbilling.InvoiceResponse, error) {
	args := m.Called(ctx, tenantID, visitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appbilling.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceService) AddItem(ctx context.Context, tenantID, invoiceID, actorID uuid.UUID, item appbilling.InvoiceItemInput) (*appbilling.InvoiceResponse, error) {
	return invoiceResult(m.Called(ctx, tenantID, invoiceID, actorID, item))
}

func (m *MockInvoiceService) RemoveItem(ctx context.Context, tenantID, invoiceID, itemID uuid.UUID) (*appbilling.InvoiceResponse, error) {
	return invoiceResult(m.Called(ctx, tenantID, invoiceID, itemID))
}

func (m *MockInvoiceService) Update(ctx context.Context, tenantID, invoiceID uuid.UUID, req appbilling.UpdateInvoiceRequest) (*appbilling.InvoiceResponse, error) {
	return invoiceResult(m.Called(ctx, tenantID, invoiceID, req))
}

func (m *MockInvoiceService) Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	return m.Called(ctx, tenantID, invoiceID).Error(0)
}

func (m *MockInvoiceService) MarkRefunded(ctx context.Context, tenantID, invoiceID uuid.UUID) (*appbilling.InvoiceResponse, error) {
	return invoiceResult(m.Called(ctx, tenantID, invoiceID))
}

func invoiceResult(args mock.Arguments) (*appbilling.InvoiceResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appbilling.InvoiceResponse), args.Error(1)
}

// =============================================================================
// Mock Payment Service
// =============================================================================

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) AddPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, req appbilling.AddPaymentRequest) (*appbilling.AddPaymentResult, error) {
	args := m.Called(ctx, tenantID, invoiceID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appbilling.AddPaymentResult), args.Error(1)
}

func (m *MockPaymentService) GetPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]appbilling.PaymentResponse, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appbilling.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) RetryAdmissions(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]appbilling.AdmissionOutcome, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appbilling.AdmissionOutcome), args.Error(1)
}

// =============================================================================
// Mock Queue Service
// =============================================================================

type MockQueueService struct {
	mock.Mock
}

func (m *MockQueueService) StartService(ctx context.Context, req appqueue.StartServiceRequest) (*clinical.ServiceOrder, error) {
	return orderResult(m.Called(ctx, req))
}

func (m *MockQueueService) CompleteService(ctx context.Context, tenantID, orderID uuid.UUID, result clinical.ServiceResult) (*clinical.ServiceOrder, error) {
	return orderResult(m.Called(ctx, tenantID, orderID, result))
}

func (m *MockQueueService) SkipPatient(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.ServiceOrder, error) {
	return orderResult(m.Called(ctx, tenantID, orderID))
}

func (m *MockQueueService) ReturnToQueue(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.ServiceOrder, error) {
	return orderResult(m.Called(ctx, tenantID, orderID))
}

func (m *MockQueueService) GetDepartmentQueue(ctx context.Context, tenantID, departmentID uuid.UUID, day string) (*appqueue.Board, error) {
	args := m.Called(ctx, tenantID, departmentID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appqueue.Board), args.Error(1)
}

func (m *MockQueueService) GetServiceOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*clinical.ServiceOrder, error) {
	return orderResult(m.Called(ctx, tenantID, orderID))
}

func (m *MockQueueService) ResultUploadLink(ctx context.Context, tenantID, orderID uuid.UUID, fileName, contentType string) (*appqueue.UploadLink, error) {
	args := m.Called(ctx, tenantID, orderID, fileName, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appqueue.UploadLink), args.Error(1)
}

func (m *MockQueueService) ResultDownloadLink(ctx context.Context, tenantID, orderID uuid.UUID) (string, time.Time, error) {
	args := m.Called(ctx, tenantID, orderID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func orderResult(args mock.Arguments) (*clinical.ServiceOrder, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clinical.ServiceOrder), args.Error(1)
}
