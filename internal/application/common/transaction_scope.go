// Package common holds application-layer contracts shared by several services.
package common

import (
	"context"

	"github.com/freightport/backend/internal/domain/billing"
	"github.com/freightport/backend/internal/domain/company"
	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/domain/order"
)

// TransactionScope runs a unit of work whose repository writes commit or roll
// back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction. An error from fn rolls
	// the transaction back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides repositories bound to one transaction.
//
// Credit moves between a company and its orders or bills, so those
// aggregates are written through the same scope. Onboarding links the
// submitting user in the same unit of work.
type TransactionalRepositories interface {
	Companies() company.Repository
	Orders() order.Repository
	Bills() billing.Repository
	Users() identity.UserRepository
}

// NoOpTransactionScope runs the function against plain repositories without
// a transaction. Unit tests use it with mocked repositories.
type NoOpTransactionScope struct {
	companies company.Repository
	orders    order.Repository
	bills     billing.Repository
	users     identity.UserRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given
// repositories. Any of them may be nil when the caller never touches it.
func NewNoOpTransactionScope(companies company.Repository, orders order.Repository, bills billing.Repository, users identity.UserRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{companies: companies, orders: orders, bills: bills, users: users}
}

// Execute runs fn without a transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Companies returns the company repository.
func (s *NoOpTransactionScope) Companies() company.Repository { return s.companies }

// Orders returns the order repository.
func (s *NoOpTransactionScope) Orders() order.Repository { return s.orders }

// Bills returns the bill repository.
func (s *NoOpTransactionScope) Bills() billing.Repository { return s.bills }

// Users returns the user repository.
func (s *NoOpTransactionScope) Users() identity.UserRepository { return s.users }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
