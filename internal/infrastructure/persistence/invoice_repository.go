package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/clinic/backend/internal/domain/billing"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultInvoiceNumberPrefix starts every invoice number unless configured otherwise
const DefaultInvoiceNumberPrefix = "INV"

const invoiceCounterScope = "invoice"

// errInvoiceConflict is returned when a save lost the optimistic version race
var errInvoiceConflict = shared.NewDomainError(shared.CodeConcurrencyConflict, "Invoice was modified by another request, reload and retry")

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db     *gorm.DB
	prefix string
}

// InvoiceRepositoryOption configures a GormInvoiceRepository
type InvoiceRepositoryOption func(*GormInvoiceRepository)

// WithInvoiceNumberPrefix sets the prefix of generated invoice numbers
func WithInvoiceNumberPrefix(prefix string) InvoiceRepositoryOption {
	return func(r *GormInvoiceRepository) {
		if p := strings.TrimSpace(prefix); p != "" {
			r.prefix = p
		}
	}
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB, opts ...InvoiceRepositoryOption) *GormInvoiceRepository {
	r := &GormInvoiceRepository{db: db, prefix: DefaultInvoiceNumberPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

func preloadPayments(db *gorm.DB) *gorm.DB {
	return db.Order("paid_at ASC, id ASC")
}

// FindByIDForTenant loads an invoice with items and payments
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Preload("Payments", preloadPayments).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("invoice", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByVisitAndServiceOrders finds the oldest open invoice of the visit
// that has a line for any of the service orders
func (r *GormInvoiceRepository) FindOpenByVisitAndServiceOrders(ctx context.Context, tenantID, visitID uuid.UUID, serviceOrderIDs []uuid.UUID) (*billing.Invoice, error) {
	if len(serviceOrderIDs) == 0 {
		return nil, nil
	}
	db := r.db.WithContext(ctx)
	billed := db.Model(&models.InvoiceItemModel{}).
		Select("invoice_id").
		Where("service_order_id IN ?", serviceOrderIDs)

	var model models.InvoiceModel
	err := db.Preload("Items", preloadItems).
		Preload("Payments", preloadPayments).
		Where("tenant_id = ? AND visit_id = ?", tenantID, visitID).
		Where("status IN ?", []billing.InvoiceStatus{billing.InvoiceStatusUnpaid, billing.InvoiceStatusPartiallyPaid}).
		Where("id IN (?)", billed).
		Order("created_at ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPatient lists a patient's invoices, newest first unless the page
// asks for a whitelisted ordering
func (r *GormInvoiceRepository) FindByPatient(ctx context.Context, tenantID, patientID uuid.UUID, page shared.PageRequest) ([]billing.Invoice, int64, error) {
	page = page.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND patient_id = ?", tenantID, patientID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InvoiceModel
	if err := query.
		Preload("Items", preloadItems).
		Order(invoiceOrderClause(page)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return invoicesToDomain(rows), total, nil
}

// FindByVisit lists the invoices of a visit, newest first
func (r *GormInvoiceRepository) FindByVisit(ctx context.Context, tenantID, visitID uuid.UUID) ([]billing.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("tenant_id = ? AND visit_id = ?", tenantID, visitID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

func invoiceOrderClause(page shared.PageRequest) string {
	field := ValidateSortField(page.OrderBy, InvoiceSortFields, "created_at")
	dir := ValidateSortOrder(page.OrderDir)
	return field + " " + dir + ", id " + dir
}

func invoicesToDomain(rows []models.InvoiceModel) []billing.Invoice {
	out := make([]billing.Invoice, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Create inserts an invoice and its items
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Create(&model.Items).Error
	})
}

// Update saves header changes with a version check and synchronizes items.
// Domain mutations bump Version once per unit of work, so the stored row
// must still carry Version-1.
func (r *GormInvoiceRepository) Update(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InvoiceModel{}).
			Where("tenant_id = ? AND id = ? AND version = ?", invoice.TenantID, invoice.ID, invoice.Version-1).
			Updates(map[string]any{
				"total_amount": model.TotalAmount,
				"paid_amount":  model.PaidAmount,
				"status":       model.Status,
				"notes":        model.Notes,
				"due_date":     model.DueDate,
				"refunded_at":  model.RefundedAt,
				"version":      model.Version,
				"updated_at":   model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errInvoiceConflict
		}

		// Items are immutable once written: drop removed ones, insert new ones.
		itemIDs := make([]uuid.UUID, len(model.Items))
		for i := range model.Items {
			itemIDs[i] = model.Items[i].ID
		}
		remove := tx.Where("invoice_id = ?", invoice.ID)
		if len(itemIDs) > 0 {
			remove = remove.Where("id NOT IN ?", itemIDs)
		}
		if err := remove.Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Items).Error
	})
}

// DeleteForTenant hard-deletes an invoice and its items
func (r *GormInvoiceRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := tx.Model(&models.InvoiceModel{}).Select("id").Where("tenant_id = ? AND id = ?", tenantID, id)
		if err := tx.Where("invoice_id IN (?)", items).Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.InvoiceModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError("invoice", id)
		}
		return nil
	})
}

// GenerateInvoiceNumber allocates <prefix>-YYYYMMDD-NNNN from the tenant's
// counter for the day
func (r *GormInvoiceRepository) GenerateInvoiceNumber(ctx context.Context, tenantID uuid.UUID, day shared.DayWindow) (string, error) {
	base := fmt.Sprintf("%s-%s-", r.prefix, day.Start.Format("20060102"))
	seed := func(db *gorm.DB) (int, error) {
		var last string
		err := db.Model(&models.InvoiceModel{}).
			Select("COALESCE(MAX(invoice_number), '')").
			Where("tenant_id = ? AND invoice_number LIKE ?", tenantID, base+"%").
			Scan(&last).Error
		if err != nil || last == "" {
			return 0, err
		}
		n, convErr := strconv.Atoi(strings.TrimPrefix(last, base))
		if convErr != nil {
			return 0, nil
		}
		return n, nil
	}
	n, err := nextSequenceValue(ctx, r.db, tenantID, invoiceCounterScope, day.Key(), seed)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", base, n), nil
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
