package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/freightport/backend/internal/application/common"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope(t *testing.T) {
	db := setupTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	c := newApprovedCompany(t, "91310000MA1FL8XQ3K", 10000)
	o := newTestOrder(t, c.ID, "FO-2026-00001")

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
			require.NoError(t, repos.Companies().Save(ctx, c))
			require.NoError(t, repos.Orders().Save(ctx, o))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = NewGormCompanyRepository(db).FindByID(ctx, c.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = NewGormOrderRepository(db).FindByID(ctx, o.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("commits on success", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
			if err := repos.Companies().Save(ctx, c); err != nil {
				return err
			}
			return repos.Orders().Save(ctx, o)
		})
		require.NoError(t, err)

		_, err = NewGormCompanyRepository(db).FindByID(ctx, c.ID)
		assert.NoError(t, err)
		_, err = NewGormOrderRepository(db).FindByID(ctx, o.ID)
		assert.NoError(t, err)
	})
}
