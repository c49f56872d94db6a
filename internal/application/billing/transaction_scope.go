package billing

import (
	"context"

	"github.com/clinic/backend/internal/domain/billing"
	"github.com/clinic/backend/internal/domain/clinical"
)

// TransactionScope provides transactional access to billing repositories.
// Invoice creation (invoice, items and provisioned service orders) and
// payment recording (payment row, invoice totals, order payment status) each
// run inside one Execute call and are committed or rolled back as a whole.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories of one transaction.
//
// Invoice is the aggregate root for its items and payments, but payments are
// written through PaymentRepo because they are append-only and never updated.
type TransactionalRepositories interface {
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() billing.InvoiceRepository
	// PaymentRepo returns the payment repository scoped to the current transaction
	PaymentRepo() billing.PaymentRepository
	// ServiceOrderRepo returns the service order repository scoped to the current transaction
	ServiceOrderRepo() clinical.ServiceOrderRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// Used in unit tests.
type NoOpTransactionScope struct {
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	orderRepo   clinical.ServiceOrderRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	orderRepo clinical.ServiceOrderRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository {
	return s.invoiceRepo
}

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() billing.PaymentRepository {
	return s.paymentRepo
}

// ServiceOrderRepo returns the service order repository.
func (s *NoOpTransactionScope) ServiceOrderRepo() clinical.ServiceOrderRepository {
	return s.orderRepo
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
