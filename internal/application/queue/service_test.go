package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/registry"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mocks
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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
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

type MockBoardCache struct {
	mock.Mock
}

func (m *MockBoardCache) Get(ctx context.Context, key BoardKey) (*Board, uint64, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*Board), args.Get(1).(uint64), args.Error(2)
}

func (m *MockBoardCache) Set(ctx context.Context, key BoardKey, board *Board, generation uint64) error {
	return m.Called(ctx, key, board, generation).Error(0)
}

func (m *MockBoardCache) Invalidate(ctx context.Context, key BoardKey) error {
	return m.Called(ctx, key).Error(0)
}

type MockResultStorage struct {
	mock.Mock
}

func (m *MockResultStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockResultStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// =============================================================================
// Helpers
// =============================================================================

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	tenantID  uuid.UUID
	deptID    uuid.UUID
	orders    *MockServiceOrderRepository
	directory *MockDirectory
	cache     *MockBoardCache
	storage   *MockResultStorage
	events    *MockEventPublisher
	clock     *shared.ManualClock
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tenantID:  uuid.New(),
		deptID:    uuid.New(),
		orders:    new(MockServiceOrderRepository),
		directory: new(MockDirectory),
		cache:     new(MockBoardCache),
		storage:   new(MockResultStorage),
		events:    new(MockEventPublisher),
		clock:     shared.NewManualClock(testNow),
	}
	f.svc = NewService(ServiceConfig{
		OrderRepo: f.orders,
		TxScope:   NewNoOpTransactionScope(f.orders),
		Directory: f.directory,
		Clock:     f.clock,
		Cache:     f.cache,
		Storage:   f.storage,
		Events:    f.events,
	})
	return f
}

func (f *fixture) paidOrder(t *testing.T) *clinical.ServiceOrder {
	t.Helper()
	dept := f.deptID
	o, err := clinical.NewServiceOrder(clinical.NewServiceOrderParams{
		TenantID:     f.tenantID,
		PatientID:    uuid.New(),
		DoctorID:     uuid.New(),
		ServiceID:    uuid.New(),
		DepartmentID: &dept,
	}, testNow.Add(-time.Hour))
	require.NoError(t, err)
	o.SetPaymentStatus(clinical.PaymentStatusPaid, testNow.Add(-time.Minute))
	return o
}

func (f *fixture) queuedOrder(t *testing.T, number int) *clinical.ServiceOrder {
	t.Helper()
	o := f.paidOrder(t)
	require.NoError(t, o.Enqueue(number, shared.DayOf(testNow, time.UTC), testNow.Add(-10*time.Minute)))
	o.ClearDomainEvents()
	return o
}

// =============================================================================
// Enqueue
// =============================================================================

func TestService_Enqueue_AdmitsPaidOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.paidOrder(t)
	day := shared.DayOf(testNow, time.UTC)

	f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)
	f.orders.On("NextQueueNumber", mock.Anything, f.tenantID, f.deptID, day).Return(3, nil)
	f.orders.On("Update", mock.Anything, order).Return(nil)
	f.events.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == clinical.EventTypeServiceOrderQueued
	})).Return(nil)

	admission, err := f.svc.Enqueue(ctx, f.tenantID, order.ID)

	require.NoError(t, err)
	assert.True(t, admission.Admitted)
	assert.Equal(t, clinical.Eligible, admission.Reason)
	require.NotNil(t, order.QueueNumber)
	assert.Equal(t, 3, *order.QueueNumber)
	assert.Equal(t, clinical.QueueStatusWaiting, order.QueueStatus)
	assert.Equal(t, "2026-03-14", order.QueueDate)
	assert.Empty(t, order.GetDomainEvents())
	f.orders.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestService_Enqueue_Ineligible(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *clinical.ServiceOrder)
		reason clinical.Eligibility
	}{
		{
			name: "unpaid",
			mutate: func(o *clinical.ServiceOrder) {
				o.SetPaymentStatus(clinical.PaymentStatusPartiallyPaid, testNow)
			},
			reason: clinical.IneligibleUnpaid,
		},
		{
			name:   "no department",
			mutate: func(o *clinical.ServiceOrder) { o.DepartmentID = nil },
			reason: clinical.IneligibleNoDept,
		},
		{
			name: "already queued",
			mutate: func(o *clinical.ServiceOrder) {
				n := 1
				o.QueueNumber = &n
				o.QueueStatus = clinical.QueueStatusWaiting
			},
			reason: clinical.IneligibleQueued,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			order := f.paidOrder(t)
			tt.mutate(order)
			f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)

			admission, err := f.svc.Enqueue(context.Background(), f.tenantID, order.ID)

			require.NoError(t, err)
			assert.False(t, admission.Admitted)
			assert.Equal(t, tt.reason, admission.Reason)
			f.orders.AssertNotCalled(t, "NextQueueNumber", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Enqueue_NotFound(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, orderID).
		Return(nil, shared.NewNotFoundError("service order", orderID))

	admission, err := f.svc.Enqueue(context.Background(), f.tenantID, orderID)

	assert.Nil(t, admission)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_Enqueue_CounterFailure(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder(t)
	f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)
	f.orders.On("NextQueueNumber", mock.Anything, f.tenantID, f.deptID, mock.Anything).
		Return(0, errors.New("lock timeout"))

	_, err := f.svc.Enqueue(context.Background(), f.tenantID, order.ID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to allocate queue number")
	f.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// =============================================================================
// Transitions
// =============================================================================

func TestService_StartService(t *testing.T) {
	f := newFixture(t)
	order := f.queuedOrder(t, 1)
	doctor := uuid.New()

	f.directory.On("FindEmployee", mock.Anything, f.tenantID, doctor).Return(&registry.Employee{ID: doctor}, nil)
	f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)
	f.orders.On("Update", mock.Anything, order).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	got, err := f.svc.StartService(context.Background(), StartServiceRequest{
		TenantID:       f.tenantID,
		ServiceOrderID: order.ID,
		PerformedByID:  &doctor,
	})

	require.NoError(t, err)
	assert.Equal(t, clinical.QueueStatusInProgress, got.QueueStatus)
	assert.Equal(t, clinical.OrderStatusInProgress, got.Status)
	require.NotNil(t, got.PerformedByID)
	assert.Equal(t, doctor, *got.PerformedByID)
	assert.Equal(t, testNow, *got.StartedAt)
}

func TestService_StartService_UnknownPerformer(t *testing.T) {
	f := newFixture(t)
	doctor := uuid.New()
	f.directory.On("FindEmployee", mock.Anything, f.tenantID, doctor).
		Return(nil, shared.NewNotFoundError("employee", doctor))

	_, err := f.svc.StartService(context.Background(), StartServiceRequest{
		TenantID:       f.tenantID,
		ServiceOrderID: uuid.New(),
		PerformedByID:  &doctor,
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
	f.orders.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_IllegalTransitionsConflict(t *testing.T) {
	tests := []struct {
		name string
		call func(f *fixture, id uuid.UUID) error
	}{
		{"complete waiting", func(f *fixture, id uuid.UUID) error {
			_, err := f.svc.CompleteService(context.Background(), f.tenantID, id, clinical.ServiceResult{})
			return err
		}},
		{"return waiting", func(f *fixture, id uuid.UUID) error {
			_, err := f.svc.ReturnToQueue(context.Background(), f.tenantID, id)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			order := f.queuedOrder(t, 2)
			f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)

			err := tt.call(f, order.ID)

			assert.ErrorIs(t, err, shared.ErrConflict)
			assert.Equal(t, clinical.QueueStatusWaiting, order.QueueStatus)
			f.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestService_SkipAndReturnKeepNumber(t *testing.T) {
	f := newFixture(t)
	order := f.queuedOrder(t, 5)
	f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)
	f.orders.On("Update", mock.Anything, order).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	skipped, err := f.svc.SkipPatient(context.Background(), f.tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, clinical.QueueStatusSkipped, skipped.QueueStatus)

	returned, err := f.svc.ReturnToQueue(context.Background(), f.tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, clinical.QueueStatusWaiting, returned.QueueStatus)
	assert.Equal(t, 5, *returned.QueueNumber)
	f.events.AssertNumberOfCalls(t, "Publish", 2)
}

func TestService_CompleteService_StoresResult(t *testing.T) {
	f := newFixture(t)
	order := f.queuedOrder(t, 1)
	require.NoError(t, order.StartService(nil, testNow.Add(-5*time.Minute)))
	order.ClearDomainEvents()

	f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)
	f.orders.On("Update", mock.Anything, order).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	got, err := f.svc.CompleteService(context.Background(), f.tenantID, order.ID, clinical.ServiceResult{
		Text: "Hemoglobin 140 g/L",
		Data: []byte(`{"hgb":140}`),
	})

	require.NoError(t, err, "a failed publish must not undo a committed transition")
	assert.Equal(t, clinical.QueueStatusCompleted, got.QueueStatus)
	assert.Equal(t, "Hemoglobin 140 g/L", got.ResultText)
	assert.JSONEq(t, `{"hgb":140}`, string(got.ResultData))
	assert.Equal(t, testNow, *got.FinishedAt)
}

// =============================================================================
// Board
// =============================================================================

func TestService_GetDepartmentQueue_BuildsAndCachesOnMiss(t *testing.T) {
	f := newFixture(t)
	first := f.queuedOrder(t, 1)
	second := f.queuedOrder(t, 2)
	require.NoError(t, first.StartService(nil, testNow))
	key := BoardKey{TenantID: f.tenantID, DepartmentID: f.deptID, Day: "2026-03-14"}

	f.directory.On("FindDepartment", mock.Anything, f.tenantID, f.deptID).
		Return(&registry.Department{ID: f.deptID, Name: "laboratory"}, nil)
	f.cache.On("Get", mock.Anything, key).Return(nil, uint64(7), nil)
	f.orders.On("FindByDepartmentAndDay", mock.Anything, f.tenantID, f.deptID, "2026-03-14").
		Return([]clinical.ServiceOrder{*second, *first}, nil)
	f.cache.On("Set", mock.Anything, key, mock.AnythingOfType("*queue.Board"), uint64(7)).Return(nil)

	board, err := f.svc.GetDepartmentQueue(context.Background(), f.tenantID, f.deptID, "")

	require.NoError(t, err)
	assert.Equal(t, "laboratory", board.DepartmentName)
	require.NotNil(t, board.InProgress)
	assert.Equal(t, first.ID, board.InProgress.ServiceOrderID)
	assert.Equal(t, "№1 — Laboratory", board.InProgress.DisplayLabel)
	require.Len(t, board.Waiting, 1)
	assert.Equal(t, 2, board.Waiting[0].QueueNumber)
	assert.Equal(t, clinical.QueueCounts{Waiting: 1, InProgress: 1}, board.Counts)
	f.cache.AssertExpectations(t)
}

func TestService_GetDepartmentQueue_CacheHit(t *testing.T) {
	f := newFixture(t)
	key := BoardKey{TenantID: f.tenantID, DepartmentID: f.deptID, Day: "2026-03-10"}
	cached := &Board{DepartmentID: f.deptID, Day: "2026-03-10"}

	f.directory.On("FindDepartment", mock.Anything, f.tenantID, f.deptID).
		Return(&registry.Department{ID: f.deptID, Name: "X-Ray"}, nil)
	f.cache.On("Get", mock.Anything, key).Return(cached, uint64(0), nil)

	board, err := f.svc.GetDepartmentQueue(context.Background(), f.tenantID, f.deptID, "2026-03-10")

	require.NoError(t, err)
	assert.Same(t, cached, board)
	f.orders.AssertNotCalled(t, "FindByDepartmentAndDay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GetDepartmentQueue_CacheErrorFallsBackToDatabase(t *testing.T) {
	f := newFixture(t)
	f.directory.On("FindDepartment", mock.Anything, f.tenantID, f.deptID).
		Return(&registry.Department{ID: f.deptID, Name: "ECG"}, nil)
	f.cache.On("Get", mock.Anything, mock.Anything).Return(nil, uint64(0), errors.New("redis: connection refused"))
	f.orders.On("FindByDepartmentAndDay", mock.Anything, f.tenantID, f.deptID, "2026-03-14").
		Return([]clinical.ServiceOrder{}, nil)

	board, err := f.svc.GetDepartmentQueue(context.Background(), f.tenantID, f.deptID, "")

	require.NoError(t, err)
	assert.Nil(t, board.InProgress)
	assert.Empty(t, board.Waiting)
	f.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GetDepartmentQueue_UnknownDepartment(t *testing.T) {
	f := newFixture(t)
	f.directory.On("FindDepartment", mock.Anything, f.tenantID, f.deptID).
		Return(nil, shared.NewNotFoundError("department", f.deptID))

	_, err := f.svc.GetDepartmentQueue(context.Background(), f.tenantID, f.deptID, "")

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_GetDepartmentQueue_BadDay(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetDepartmentQueue(context.Background(), f.tenantID, f.deptID, "14.03.2026")

	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDisplayLabel(t *testing.T) {
	assert.Equal(t, "№12 — Laboratory", DisplayLabel(12, "laboratory"))
	assert.Equal(t, "№3 — X-Ray Room", DisplayLabel(3, "x-ray room"))
	assert.Equal(t, "№7", DisplayLabel(7, ""))
}

// =============================================================================
// Result files
// =============================================================================

func TestService_ResultUploadLink(t *testing.T) {
	f := newFixture(t)
	order := f.queuedOrder(t, 1)
	require.NoError(t, order.StartService(nil, testNow))
	expires := testNow.Add(15 * time.Minute)

	f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)
	f.storage.On("GenerateUploadURL", mock.Anything, mock.AnythingOfType("string"), "application/pdf", 15*time.Minute).
		Return("https://bucket.example/put", expires, nil)

	link, err := f.svc.ResultUploadLink(context.Background(), f.tenantID, order.ID, "../../etc/blood test.pdf", "application/pdf")

	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example/put", link.UploadURL)
	assert.Contains(t, link.ObjectKey, "results/"+f.tenantID.String()+"/"+order.ID.String()+"/")
	assert.Contains(t, link.ObjectKey, "-blood_test.pdf")
	assert.NotContains(t, link.ObjectKey, "..")
	assert.Equal(t, expires, link.ExpiresAt)
}

func TestService_ResultUploadLink_RequiresInProgress(t *testing.T) {
	f := newFixture(t)
	order := f.queuedOrder(t, 1)
	f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)

	_, err := f.svc.ResultUploadLink(context.Background(), f.tenantID, order.ID, "scan.png", "image/png")

	assert.ErrorIs(t, err, shared.ErrConflict)
	f.storage.AssertNotCalled(t, "GenerateUploadURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ResultUploadLink_StorageDisabled(t *testing.T) {
	f := newFixture(t)
	svc := NewService(ServiceConfig{OrderRepo: f.orders, TxScope: NewNoOpTransactionScope(f.orders), Directory: f.directory, Clock: f.clock})

	_, err := svc.ResultUploadLink(context.Background(), f.tenantID, uuid.New(), "scan.png", "image/png")

	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestService_ResultDownloadLink(t *testing.T) {
	t.Run("presigns stored objects", func(t *testing.T) {
		f := newFixture(t)
		order := f.queuedOrder(t, 1)
		order.ResultFileURL = resultKeyPrefix(f.tenantID, order.ID) + "abc-report.pdf"
		f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)
		f.storage.On("GenerateDownloadURL", mock.Anything, order.ResultFileURL, 15*time.Minute).
			Return("https://bucket.example/get", testNow.Add(15*time.Minute), nil)

		url, _, err := f.svc.ResultDownloadLink(context.Background(), f.tenantID, order.ID)

		require.NoError(t, err)
		assert.Equal(t, "https://bucket.example/get", url)
	})

	t.Run("returns external urls unchanged", func(t *testing.T) {
		f := newFixture(t)
		order := f.queuedOrder(t, 1)
		order.ResultFileURL = "https://pacs.example/study/42"
		f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)

		url, _, err := f.svc.ResultDownloadLink(context.Background(), f.tenantID, order.ID)

		require.NoError(t, err)
		assert.Equal(t, "https://pacs.example/study/42", url)
		f.storage.AssertNotCalled(t, "GenerateDownloadURL", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no file", func(t *testing.T) {
		f := newFixture(t)
		order := f.queuedOrder(t, 1)
		f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)

		_, _, err := f.svc.ResultDownloadLink(context.Background(), f.tenantID, order.ID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

// =============================================================================
// Board invalidation
// =============================================================================

func TestBoardInvalidationHandler(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder(t)
	require.NoError(t, order.Enqueue(4, shared.DayOf(testNow, time.UTC), testNow))
	event := order.GetDomainEvents()[0]

	key := BoardKey{TenantID: f.tenantID, DepartmentID: f.deptID, Day: "2026-03-14"}
	f.cache.On("Invalidate", mock.Anything, key).Return(nil)

	h := NewBoardInvalidationHandler(f.cache, nil)
	assert.ElementsMatch(t, clinical.QueueEventTypes, h.EventTypes())
	require.NoError(t, h.Handle(context.Background(), event))
	f.cache.AssertExpectations(t)
}
