package billing

import (
	"context"
	"testing"
	"time"

	"github.com/clinic/backend/internal/domain/billing"
	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/registry"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

type billingFixture struct {
	tenantID  uuid.UUID
	patientID uuid.UUID
	visitID   uuid.UUID
	doctorID  uuid.UUID
	authorID  uuid.UUID
	labDept   uuid.UUID
	xrayDept  uuid.UUID

	lab     *registry.Service
	xray    *registry.Service
	consult *registry.Service

	invoices  *MockInvoiceRepository
	payments  *MockPaymentRepository
	orders    *MockServiceOrderRepository
	failures  *MockAdmissionFailureRepository
	directory *MockDirectory
	queue     *MockQueueAdmitter
	events    *MockEventPublisher
	clock     *shared.ManualClock

	invoiceSvc *InvoiceService
	paymentSvc *PaymentService
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	f := &billingFixture{
		tenantID:  uuid.New(),
		patientID: uuid.New(),
		visitID:   uuid.New(),
		doctorID:  uuid.New(),
		authorID:  uuid.New(),
		labDept:   uuid.New(),
		xrayDept:  uuid.New(),
		invoices:  new(MockInvoiceRepository),
		payments:  new(MockPaymentRepository),
		orders:    new(MockServiceOrderRepository),
		failures:  new(MockAdmissionFailureRepository),
		directory: new(MockDirectory),
		queue:     new(MockQueueAdmitter),
		events:    new(MockEventPublisher),
		clock:     shared.NewManualClock(testNow),
	}
	f.lab = &registry.Service{ID: uuid.New(), TenantID: f.tenantID, Name: "Complete blood count", Price: decPtr(50000), DepartmentID: &f.labDept, IsActive: true}
	f.xray = &registry.Service{ID: uuid.New(), TenantID: f.tenantID, Name: "Chest X-ray", Price: decPtr(30000), DepartmentID: &f.xrayDept, IsActive: true}
	f.consult = &registry.Service{ID: uuid.New(), TenantID: f.tenantID, Name: "Consultation", IsActive: true}

	tx := NewNoOpTransactionScope(f.invoices, f.payments, f.orders)
	f.invoiceSvc = NewInvoiceService(InvoiceServiceConfig{
		InvoiceRepo: f.invoices,
		OrderRepo:   f.orders,
		TxScope:     tx,
		Directory:   f.directory,
		Clock:       f.clock,
		Events:      f.events,
	})
	f.paymentSvc = NewPaymentService(PaymentServiceConfig{
		InvoiceRepo: f.invoices,
		PaymentRepo: f.payments,
		FailureRepo: f.failures,
		TxScope:     tx,
		Queue:       f.queue,
		Directory:   f.directory,
		Clock:       f.clock,
		Events:      f.events,
	})
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	return f
}

// stubDirectory registers the happy-path collaborator lookups.
func (f *billingFixture) stubDirectory(visitDoctor *uuid.UUID) {
	f.directory.On("FindPatient", mock.Anything, f.tenantID, f.patientID).
		Return(&registry.Patient{ID: f.patientID, TenantID: f.tenantID}, nil).Maybe()
	f.directory.On("FindVisit", mock.Anything, f.tenantID, f.visitID).
		Return(&registry.Visit{ID: f.visitID, TenantID: f.tenantID, PatientID: f.patientID, EmployeeID: visitDoctor}, nil).Maybe()
	f.directory.On("FindEmployee", mock.Anything, f.tenantID, mock.Anything).
		Return(&registry.Employee{TenantID: f.tenantID}, nil).Maybe()
	for _, svc := range []*registry.Service{f.lab, f.xray, f.consult} {
		f.directory.On("FindService", mock.Anything, f.tenantID, svc.ID).Return(svc, nil).Maybe()
	}
}

// newInvoice builds an UNPAID invoice whose lines each own a lab service order.
func (f *billingFixture) newInvoice(t *testing.T, prices ...int64) (*billing.Invoice, []clinical.ServiceOrder) {
	t.Helper()
	lines := make([]billing.LineSpec, 0, len(prices))
	orders := make([]clinical.ServiceOrder, 0, len(prices))
	for _, p := range prices {
		dept := f.labDept
		o, err := clinical.NewServiceOrder(clinical.NewServiceOrderParams{
			TenantID:     f.tenantID,
			PatientID:    f.patientID,
			VisitID:      &f.visitID,
			DoctorID:     f.doctorID,
			ServiceID:    f.lab.ID,
			DepartmentID: &dept,
		}, testNow)
		require.NoError(t, err)
		id := o.ID
		lines = append(lines, billing.LineSpec{
			ServiceID:        f.lab.ID,
			ServiceOrderID:   &id,
			ProvisionedOrder: true,
			Quantity:         1,
			UnitPrice:        dec(p),
		})
		orders = append(orders, *o)
	}
	inv, err := billing.NewInvoice(billing.NewInvoiceParams{
		TenantID:      f.tenantID,
		InvoiceNumber: "INV-20260314-0001",
		PatientID:     f.patientID,
		VisitID:       &f.visitID,
		CreatedByID:   f.authorID,
		Lines:         lines,
	}, testNow.Add(-time.Hour))
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv, orders
}

// =============================================================================
// Create
// =============================================================================

func TestInvoiceService_Create_ProvisionsServiceOrders(t *testing.T) {
	f := newBillingFixture(t)
	f.stubDirectory(&f.doctorID)
	ctx := context.Background()

	var created []*clinical.ServiceOrder
	f.invoices.On("GenerateInvoiceNumber", mock.Anything, f.tenantID, shared.DayOf(testNow, time.UTC)).
		Return("INV-20260314-0007", nil)
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*clinical.ServiceOrder")).
		Run(func(args mock.Arguments) { created = append(created, args.Get(1).(*clinical.ServiceOrder)) }).
		Return(nil)
	f.invoices.On("Create", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)

	result, err := f.invoiceSvc.Create(ctx, f.tenantID, CreateInvoiceRequest{
		PatientID:   f.patientID,
		VisitID:     &f.visitID,
		CreatedByID: f.authorID,
		Items: []InvoiceItemInput{
			{ServiceID: f.lab.ID, Quantity: 1},
			{ServiceID: f.xray.ID, Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.False(t, result.AlreadyExists())
	inv := result.Invoice
	assert.Equal(t, "INV-20260314-0007", inv.InvoiceNumber)
	assert.True(t, inv.TotalAmount.Equal(dec(80000)), "total = %s", inv.TotalAmount)
	assert.Equal(t, "UNPAID", inv.Status)
	require.Len(t, inv.Items, 2)

	require.Len(t, created, 2)
	for i, o := range created {
		assert.Equal(t, f.doctorID, o.DoctorID, "visit doctor is assigned")
		assert.Equal(t, clinical.OrderStatusOrdered, o.Status)
		assert.Equal(t, clinical.PaymentStatusUnpaid, o.PaymentStatus)
		require.NotNil(t, inv.Items[i].ServiceOrderID)
		assert.Equal(t, o.ID, *inv.Items[i].ServiceOrderID)
	}
	assert.Equal(t, f.labDept, *created[0].DepartmentID)
	assert.Equal(t, f.xrayDept, *created[1].DepartmentID)
	f.invoices.AssertExpectations(t)
}

func TestInvoiceService_Create_AuthorIsFallbackDoctor(t *testing.T) {
	f := newBillingFixture(t)
	f.stubDirectory(nil)

	var doctor uuid.UUID
	f.invoices.On("GenerateInvoiceNumber", mock.Anything, f.tenantID, mock.Anything).Return("INV-20260314-0001", nil)
	f.orders.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { doctor = args.Get(1).(*clinical.ServiceOrder).DoctorID }).
		Return(nil)
	f.invoices.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.invoiceSvc.Create(context.Background(), f.tenantID, CreateInvoiceRequest{
		PatientID:   f.patientID,
		VisitID:     &f.visitID,
		CreatedByID: f.authorID,
		Items:       []InvoiceItemInput{{ServiceID: f.lab.ID, Quantity: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, f.authorID, doctor)
}

func TestInvoiceService_Create_ExplicitPriceAndDiscount(t *testing.T) {
	f := newBillingFixture(t)
	f.stubDirectory(&f.doctorID)
	f.invoices.On("GenerateInvoiceNumber", mock.Anything, f.tenantID, mock.Anything).Return("INV-20260314-0002", nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.invoices.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.invoiceSvc.Create(context.Background(), f.tenantID, CreateInvoiceRequest{
		PatientID:   f.patientID,
		CreatedByID: f.authorID,
		Items: []InvoiceItemInput{
			{ServiceID: f.consult.ID, Quantity: 2, UnitPrice: decPtr(25000), Discount: dec(5000)},
		},
	})

	require.NoError(t, err)
	assert.True(t, result.Invoice.TotalAmount.Equal(dec(45000)))
	assert.True(t, result.Invoice.Items[0].TotalPrice.Equal(dec(45000)))
}

func TestInvoiceService_Create_ReturnsOpenInvoiceForSameOrders(t *testing.T) {
	f := newBillingFixture(t)
	f.stubDirectory(&f.doctorID)
	existing, orders := f.newInvoice(t, 50000)
	orderID := orders[0].ID

	f.invoices.On("FindOpenByVisitAndServiceOrders", mock.Anything, f.tenantID, f.visitID, []uuid.UUID{orderID}).
		Return(existing, nil)

	result, err := f.invoiceSvc.Create(context.Background(), f.tenantID, CreateInvoiceRequest{
		PatientID:   f.patientID,
		VisitID:     &f.visitID,
		CreatedByID: f.authorID,
		Items:       []InvoiceItemInput{{ServiceID: f.lab.ID, ServiceOrderID: &orderID, Quantity: 1}},
	})

	require.NoError(t, err)
	assert.True(t, result.AlreadyExists())
	assert.Equal(t, existing.ID, result.Invoice.ID)
	f.invoices.AssertNotCalled(t, "GenerateInvoiceNumber", mock.Anything, mock.Anything, mock.Anything)
	f.invoices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInvoiceService_Create_ReusesReferencedOrder(t *testing.T) {
	f := newBillingFixture(t)
	f.stubDirectory(&f.doctorID)
	_, orders := f.newInvoice(t, 1)
	order := orders[0]

	f.invoices.On("FindOpenByVisitAndServiceOrders", mock.Anything, f.tenantID, f.visitID, mock.Anything).Return(nil, nil)
	f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(&order, nil)
	f.invoices.On("GenerateInvoiceNumber", mock.Anything, f.tenantID, mock.Anything).Return("INV-20260314-0003", nil)
	f.invoices.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.invoiceSvc.Create(context.Background(), f.tenantID, CreateInvoiceRequest{
		PatientID:   f.patientID,
		VisitID:     &f.visitID,
		CreatedByID: f.authorID,
		Items:       []InvoiceItemInput{{ServiceID: f.lab.ID, ServiceOrderID: &order.ID, Quantity: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, order.ID, *result.Invoice.Items[0].ServiceOrderID)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInvoiceService_Create_Rejections(t *testing.T) {
	otherPatient := uuid.New()

	tests := []struct {
		name    string
		setup   func(f *billingFixture)
		req     func(f *billingFixture) CreateInvoiceRequest
		wantErr error
	}{
		{
			name:  "no items",
			setup: func(f *billingFixture) {},
			req: func(f *billingFixture) CreateInvoiceRequest {
				return CreateInvoiceRequest{PatientID: f.patientID, CreatedByID: f.authorID}
			},
			wantErr: shared.ErrValidation,
		},
		{
			name: "unknown patient",
			setup: func(f *billingFixture) {
				f.directory.On("FindPatient", mock.Anything, f.tenantID, otherPatient).
					Return(nil, shared.NewNotFoundError("patient", otherPatient))
			},
			req: func(f *billingFixture) CreateInvoiceRequest {
				return CreateInvoiceRequest{PatientID: otherPatient, CreatedByID: f.authorID, Items: []InvoiceItemInput{{ServiceID: f.lab.ID, Quantity: 1}}}
			},
			wantErr: shared.ErrNotFound,
		},
		{
			name: "visit of another patient",
			setup: func(f *billingFixture) {
				f.directory.On("FindPatient", mock.Anything, f.tenantID, f.patientID).Return(&registry.Patient{ID: f.patientID}, nil)
				f.directory.On("FindVisit", mock.Anything, f.tenantID, f.visitID).
					Return(&registry.Visit{ID: f.visitID, PatientID: otherPatient}, nil)
			},
			req: func(f *billingFixture) CreateInvoiceRequest {
				return CreateInvoiceRequest{PatientID: f.patientID, VisitID: &f.visitID, CreatedByID: f.authorID, Items: []InvoiceItemInput{{ServiceID: f.lab.ID, Quantity: 1}}}
			},
			wantErr: shared.ErrValidation,
		},
		{
			name:  "no price anywhere",
			setup: func(f *billingFixture) { f.stubDirectory(&f.doctorID) },
			req: func(f *billingFixture) CreateInvoiceRequest {
				return CreateInvoiceRequest{PatientID: f.patientID, CreatedByID: f.authorID, Items: []InvoiceItemInput{{ServiceID: f.consult.ID, Quantity: 1}}}
			},
			wantErr: shared.ErrValidation,
		},
		{
			name:  "discount above price",
			setup: func(f *billingFixture) { f.stubDirectory(&f.doctorID) },
			req: func(f *billingFixture) CreateInvoiceRequest {
				return CreateInvoiceRequest{PatientID: f.patientID, CreatedByID: f.authorID, Items: []InvoiceItemInput{{ServiceID: f.lab.ID, Quantity: 1, Discount: dec(60000)}}}
			},
			wantErr: shared.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBillingFixture(t)
			tt.setup(f)
			f.invoices.On("GenerateInvoiceNumber", mock.Anything, mock.Anything, mock.Anything).Return("INV-20260314-0001", nil).Maybe()
			f.orders.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

			_, err := f.invoiceSvc.Create(context.Background(), f.tenantID, tt.req(f))

			assert.ErrorIs(t, err, tt.wantErr)
			f.invoices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

// =============================================================================
// Items
// =============================================================================

func TestInvoiceService_ItemSequenceKeepsTotalIntegrity(t *testing.T) {
	f := newBillingFixture(t)
	f.stubDirectory(&f.doctorID)
	inv, _ := f.newInvoice(t, 50000)

	f.invoices.On("FindByIDForTenant", mock.Anything, f.tenantID, inv.ID).Return(inv, nil)
	f.invoices.On("Update", mock.Anything, inv).Return(nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, mock.Anything).
		Return(&clinical.ServiceOrder{Status: clinical.OrderStatusOrdered, PaymentStatus: clinical.PaymentStatusUnpaid}, nil)
	f.orders.On("DeleteForTenant", mock.Anything, f.tenantID, mock.Anything).Return(nil)

	ctx := context.Background()
	resp, err := f.invoiceSvc.AddItem(ctx, f.tenantID, inv.ID, f.authorID, InvoiceItemInput{ServiceID: f.xray.ID, Quantity: 1})
	require.NoError(t, err)
	assert.True(t, resp.TotalAmount.Equal(dec(80000)))

	resp, err = f.invoiceSvc.AddItem(ctx, f.tenantID, inv.ID, f.authorID, InvoiceItemInput{ServiceID: f.consult.ID, Quantity: 3, UnitPrice: decPtr(12345), Discount: dec(45)})
	require.NoError(t, err)

	_, err = f.invoiceSvc.RemoveItem(ctx, f.tenantID, inv.ID, resp.Items[1].ID)
	require.NoError(t, err)

	assert.True(t, inv.TotalAmount.Equal(inv.RecomputedTotal()), "running total %s drifted from %s", inv.TotalAmount, inv.RecomputedTotal())
	assert.True(t, inv.TotalAmount.Equal(dec(50000+36990)))
	f.orders.AssertNumberOfCalls(t, "DeleteForTenant", 1)
}

func TestInvoiceService_PaidInvoiceIsFrozen(t *testing.T) {
	f := newBillingFixture(t)
	f.stubDirectory(&f.doctorID)
	inv, _ := f.newInvoice(t, 1000)
	_, err := inv.RecordPayment(billing.RecordPaymentParams{Amount: dec(1000), PaidByID: f.authorID}, testNow)
	require.NoError(t, err)
	versionBefore := inv.Version

	f.invoices.On("FindByIDForTenant", mock.Anything, f.tenantID, inv.ID).Return(inv, nil)
	ctx := context.Background()
	notes := "late note"

	_, err = f.invoiceSvc.AddItem(ctx, f.tenantID, inv.ID, f.authorID, InvoiceItemInput{ServiceID: f.lab.ID, Quantity: 1})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.invoiceSvc.RemoveItem(ctx, f.tenantID, inv.ID, inv.Items[0].ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.invoiceSvc.Update(ctx, f.tenantID, inv.ID, UpdateInvoiceRequest{Notes: &notes})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, versionBefore, inv.Version)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.invoices.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestInvoiceService_Update(t *testing.T) {
	f := newBillingFixture(t)
	inv, _ := f.newInvoice(t, 1000)
	due := testNow.AddDate(0, 0, 14)
	notes := "Pay at reception"

	f.invoices.On("FindByIDForTenant", mock.Anything, f.tenantID, inv.ID).Return(inv, nil)
	f.invoices.On("Update", mock.Anything, inv).Return(nil)

	resp, err := f.invoiceSvc.Update(context.Background(), f.tenantID, inv.ID, UpdateInvoiceRequest{Notes: &notes, DueDate: &due})

	require.NoError(t, err)
	assert.Equal(t, notes, resp.Notes)
	assert.Equal(t, due, *resp.DueDate)
}

// =============================================================================
// Delete and refund
// =============================================================================

func TestInvoiceService_Delete(t *testing.T) {
	t.Run("removes invoice and untouched provisioned orders", func(t *testing.T) {
		f := newBillingFixture(t)
		inv, orders := f.newInvoice(t, 1000, 2000)
		orders[1].PaymentStatus = clinical.PaymentStatusPaid

		f.invoices.On("FindByIDForTenant", mock.Anything, f.tenantID, inv.ID).Return(inv, nil)
		f.orders.On("FindByIDsForTenant", mock.Anything, f.tenantID, inv.ProvisionedServiceOrderIDs()).Return(orders, nil)
		f.invoices.On("DeleteForTenant", mock.Anything, f.tenantID, inv.ID).Return(nil)
		f.orders.On("DeleteForTenant", mock.Anything, f.tenantID, []uuid.UUID{orders[0].ID}).Return(nil)

		require.NoError(t, f.invoiceSvc.Delete(context.Background(), f.tenantID, inv.ID))
		f.invoices.AssertExpectations(t)
		f.orders.AssertExpectations(t)
	})

	t.Run("rejects invoice with payments", func(t *testing.T) {
		f := newBillingFixture(t)
		inv, _ := f.newInvoice(t, 1000)
		_, err := inv.RecordPayment(billing.RecordPaymentParams{Amount: dec(10), PaidByID: f.authorID}, testNow)
		require.NoError(t, err)
		f.invoices.On("FindByIDForTenant", mock.Anything, f.tenantID, inv.ID).Return(inv, nil)

		err = f.invoiceSvc.Delete(context.Background(), f.tenantID, inv.ID)

		assert.ErrorIs(t, err, shared.ErrInvalidState)
		f.invoices.AssertNotCalled(t, "DeleteForTenant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("other tenant is not found", func(t *testing.T) {
		f := newBillingFixture(t)
		otherTenant := uuid.New()
		id := uuid.New()
		f.invoices.On("FindByIDForTenant", mock.Anything, otherTenant, id).Return(nil, shared.NewNotFoundError("invoice", id))

		err := f.invoiceSvc.Delete(context.Background(), otherTenant, id)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestInvoiceService_MarkRefunded_MirrorsOrders(t *testing.T) {
	f := newBillingFixture(t)
	inv, orders := f.newInvoice(t, 1000)
	_, err := inv.RecordPayment(billing.RecordPaymentParams{Amount: dec(1000), PaidByID: f.authorID}, testNow)
	require.NoError(t, err)
	orders[0].SetPaymentStatus(clinical.PaymentStatusPaid, testNow)

	f.invoices.On("FindByIDForTenant", mock.Anything, f.tenantID, inv.ID).Return(inv, nil)
	f.invoices.On("Update", mock.Anything, inv).Return(nil)
	f.orders.On("FindByIDsForTenant", mock.Anything, f.tenantID, inv.ServiceOrderIDs()).Return(orders, nil)
	f.orders.On("Update", mock.Anything, mock.MatchedBy(func(o *clinical.ServiceOrder) bool {
		return o.PaymentStatus == clinical.PaymentStatusRefunded
	})).Return(nil).Once()

	resp, err := f.invoiceSvc.MarkRefunded(context.Background(), f.tenantID, inv.ID)

	require.NoError(t, err)
	assert.Equal(t, "REFUNDED", resp.Status)
	assert.NotNil(t, resp.RefundedAt)
	assert.True(t, resp.PaidAmount.Equal(dec(1000)), "no money moves")
	f.orders.AssertExpectations(t)
}

func TestInvoiceService_MarkRefunded_UnpaidRejected(t *testing.T) {
	f := newBillingFixture(t)
	inv, _ := f.newInvoice(t, 1000)
	f.invoices.On("FindByIDForTenant", mock.Anything, f.tenantID, inv.ID).Return(inv, nil)

	_, err := f.invoiceSvc.MarkRefunded(context.Background(), f.tenantID, inv.ID)

	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

// =============================================================================
// Reads
// =============================================================================

func TestInvoiceService_ListByPatient(t *testing.T) {
	f := newBillingFixture(t)
	f.stubDirectory(nil)
	inv, _ := f.newInvoice(t, 1000)

	f.invoices.On("FindByPatient", mock.Anything, f.tenantID, f.patientID, shared.PageRequest{Page: 1, PageSize: shared.DefaultPageSize}).
		Return([]billing.Invoice{*inv}, int64(21), nil)

	page, err := f.invoiceSvc.ListByPatient(context.Background(), f.tenantID, f.patientID, shared.PageRequest{})

	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(21), page.Total)
	assert.Equal(t, 2, page.TotalPages)
}

func TestInvoiceService_ListByVisit(t *testing.T) {
	f := newBillingFixture(t)
	f.stubDirectory(nil)
	inv, _ := f.newInvoice(t, 1000)
	f.invoices.On("FindByVisit", mock.Anything, f.tenantID, f.visitID).Return([]billing.Invoice{*inv}, nil)

	list, err := f.invoiceSvc.ListByVisit(context.Background(), f.tenantID, f.visitID)

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, inv.InvoiceNumber, list[0].InvoiceNumber)
}
