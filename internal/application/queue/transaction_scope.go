package queue

import (
	"context"

	"github.com/clinic/backend/internal/domain/clinical"
)

// TransactionScope runs queue work in one database transaction. Queue
// number allocation relies on it: the counter row stays locked until the
// function returns and is rolled back with everything else on error.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides repositories bound to the current transaction.
type TransactionalRepositories interface {
	// ServiceOrderRepo returns the service order repository scoped to the current transaction
	ServiceOrderRepo() clinical.ServiceOrderRepository
}

// NoOpTransactionScope runs the function without a transaction. Used in tests.
type NoOpTransactionScope struct {
	orderRepo clinical.ServiceOrderRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over orderRepo.
func NewNoOpTransactionScope(orderRepo clinical.ServiceOrderRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{orderRepo: orderRepo}
}

// Execute runs fn directly.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ServiceOrderRepo returns the wrapped repository.
func (s *NoOpTransactionScope) ServiceOrderRepo() clinical.ServiceOrderRepository {
	return s.orderRepo
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
