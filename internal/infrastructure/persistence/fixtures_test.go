package persistence

import (
	"testing"
	"time"

	"github.com/clinic/backend/internal/domain/billing"
	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixtureNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// clinicFixture is one tenant's registry: a patient with a visit, a doctor,
// a cashier, a lab and an x-ray department with one priced service each.
type clinicFixture struct {
	tenantID  uuid.UUID
	patientID uuid.UUID
	visitID   uuid.UUID
	doctorID  uuid.UUID
	cashierID uuid.UUID
	labDept   uuid.UUID
	xrayDept  uuid.UUID
	labTest   uuid.UUID
	xray      uuid.UUID
}

func seedClinic(t *testing.T, db *gorm.DB) clinicFixture {
	t.Helper()
	f := clinicFixture{
		tenantID:  uuid.New(),
		patientID: uuid.New(),
		visitID:   uuid.New(),
		doctorID:  uuid.New(),
		cashierID: uuid.New(),
		labDept:   uuid.New(),
		xrayDept:  uuid.New(),
		labTest:   uuid.New(),
		xray:      uuid.New(),
	}
	labPrice := decimal.NewFromInt(50000)
	xrayPrice := decimal.NewFromInt(30000)

	rows := []any{
		&models.PatientModel{ID: f.patientID, TenantID: f.tenantID, FullName: "Aziza Karimova"},
		&models.EmployeeModel{ID: f.doctorID, TenantID: f.tenantID, FullName: "Dr. Rustam Aliev"},
		&models.EmployeeModel{ID: f.cashierID, TenantID: f.tenantID, FullName: "Malika Yusupova"},
		&models.VisitModel{ID: f.visitID, TenantID: f.tenantID, PatientID: f.patientID, EmployeeID: &f.doctorID},
		&models.DepartmentModel{ID: f.labDept, TenantID: f.tenantID, Name: "laboratory"},
		&models.DepartmentModel{ID: f.xrayDept, TenantID: f.tenantID, Name: "radiology"},
		&models.ServiceModel{ID: f.labTest, TenantID: f.tenantID, Name: "Complete blood count", Price: &labPrice, DepartmentID: &f.labDept, IsActive: true},
		&models.ServiceModel{ID: f.xray, TenantID: f.tenantID, Name: "Chest X-ray", Price: &xrayPrice, DepartmentID: &f.xrayDept, IsActive: true},
	}
	for _, row := range rows {
		require.NoError(t, db.Create(row).Error)
	}
	return f
}

// newOrder builds an unsaved service order of the fixture's patient.
func (f clinicFixture) newOrder(t *testing.T, serviceID, departmentID uuid.UUID) *clinical.ServiceOrder {
	t.Helper()
	dept := departmentID
	visit := f.visitID
	order, err := clinical.NewServiceOrder(clinical.NewServiceOrderParams{
		TenantID:     f.tenantID,
		PatientID:    f.patientID,
		VisitID:      &visit,
		DoctorID:     f.doctorID,
		ServiceID:    serviceID,
		DepartmentID: &dept,
	}, fixtureNow)
	require.NoError(t, err)
	return order
}

// newInvoice builds an unsaved invoice with one line per order.
func (f clinicFixture) newInvoice(t *testing.T, number string, orders []*clinical.ServiceOrder, prices ...int64) *billing.Invoice {
	t.Helper()
	require.Len(t, prices, len(orders))
	visit := f.visitID
	lines := make([]billing.LineSpec, len(orders))
	for i, o := range orders {
		id := o.ID
		lines[i] = billing.LineSpec{
			ServiceID:        o.ServiceID,
			ServiceOrderID:   &id,
			ProvisionedOrder: true,
			Quantity:         1,
			UnitPrice:        decimal.NewFromInt(prices[i]),
		}
	}
	inv, err := billing.NewInvoice(billing.NewInvoiceParams{
		TenantID:      f.tenantID,
		InvoiceNumber: number,
		PatientID:     f.patientID,
		VisitID:       &visit,
		Currency:      "UZS",
		CreatedByID:   f.doctorID,
		Lines:         lines,
	}, fixtureNow)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

func dayOf(t time.Time) shared.DayWindow {
	return shared.DayOf(t, time.UTC)
}
