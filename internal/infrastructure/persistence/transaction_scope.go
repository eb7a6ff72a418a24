package persistence

import (
	"context"

	"github.com/freightport/backend/internal/application/common"
	"github.com/freightport/backend/internal/domain/billing"
	"github.com/freightport/backend/internal/domain/company"
	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/domain/order"
	"gorm.io/gorm"
)

// GormTransactionScope implements common.TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction and commits when it returns nil.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos common.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Companies() company.Repository {
	return NewGormCompanyRepository(r.tx)
}

func (r *gormTransactionalRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) Bills() billing.Repository {
	return NewGormBillRepository(r.tx)
}

func (r *gormTransactionalRepositories) Users() identity.UserRepository {
	return NewGormUserRepository(r.tx)
}

var (
	_ common.TransactionScope          = (*GormTransactionScope)(nil)
	_ common.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
