package persistence

import (
	"context"

	appbilling "github.com/clinic/backend/internal/application/billing"
	appqueue "github.com/clinic/backend/internal/application/queue"
	"github.com/clinic/backend/internal/domain/billing"
	"github.com/clinic/backend/internal/domain/clinical"
	"gorm.io/gorm"
)

// GormBillingTransactionScope implements the billing TransactionScope using GORM transactions.
type GormBillingTransactionScope struct {
	db         *gorm.DB
	invoiceOpt []InvoiceRepositoryOption
}

// NewGormBillingTransactionScope creates a new GormBillingTransactionScope.
// The options configure the invoice repository handed to each transaction.
func NewGormBillingTransactionScope(db *gorm.DB, opts ...InvoiceRepositoryOption) *GormBillingTransactionScope {
	return &GormBillingTransactionScope{db: db, invoiceOpt: opts}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormBillingTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, invoiceOpt: s.invoiceOpt})
	})
}

// GormQueueTransactionScope implements the queue TransactionScope using GORM transactions.
type GormQueueTransactionScope struct {
	db *gorm.DB
}

// NewGormQueueTransactionScope creates a new GormQueueTransactionScope.
func NewGormQueueTransactionScope(db *gorm.DB) *GormQueueTransactionScope {
	return &GormQueueTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
func (s *GormQueueTransactionScope) Execute(ctx context.Context, fn func(repos appqueue.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx         *gorm.DB
	invoiceOpt []InvoiceRepositoryOption
}

// InvoiceRepo returns the invoice repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InvoiceRepo() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx, r.invoiceOpt...)
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// ServiceOrderRepo returns the service order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ServiceOrderRepo() clinical.ServiceOrderRepository {
	return NewGormServiceOrderRepository(r.tx)
}

var (
	_ appbilling.TransactionScope          = (*GormBillingTransactionScope)(nil)
	_ appqueue.TransactionScope            = (*GormQueueTransactionScope)(nil)
	_ appbilling.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ appqueue.TransactionalRepositories   = (*gormTransactionalRepositories)(nil)
)
