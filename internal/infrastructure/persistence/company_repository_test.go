package persistence

import (
	"context"
	"testing"

	"github.com/freightport/backend/internal/domain/company"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCompanyRepository_SaveAndFind(t *testing.T) {
	repo := NewGormCompanyRepository(setupTestDB(t))
	ctx := context.Background()

	c := newApprovedCompany(t, "91310000MA1FL8XQ3K", 50000)
	require.NoError(t, repo.Save(ctx, c))

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, company.StatusApproved, found.Status)
	assert.True(t, found.CreditLimit.Equal(decimal.NewFromInt(50000)))
	assert.True(t, found.CreditUsed.IsZero())
	assert.Equal(t, "CNY", found.Currency)

	byLicense, err := repo.FindByLicenseNo(ctx, "91310000ma1fl8xq3k")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byLicense.ID)

	dup := newApprovedCompany(t, "91310000MA1FL8XQ3K", 100)
	assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
}

func TestGormCompanyRepository_SaveWithLock(t *testing.T) {
	repo := NewGormCompanyRepository(setupTestDB(t))
	ctx := context.Background()

	c := newApprovedCompany(t, "91310000MA1FL8XQ3K", 50000)
	require.NoError(t, repo.Save(ctx, c))

	first, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, first.ReserveCredit(decimal.NewFromInt(30000)))
	require.NoError(t, repo.SaveWithLock(ctx, first))

	require.NoError(t, second.ReserveCredit(decimal.NewFromInt(30000)))
	err = repo.SaveWithLock(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreditUsed.Equal(decimal.NewFromInt(30000)))
	assert.Equal(t, first.Version, stored.Version)

	// the winner can keep saving
	first.ReleaseCredit(decimal.NewFromInt(10000))
	require.NoError(t, repo.SaveWithLock(ctx, first))
}

func TestGormCompanyRepository_ListAndCount(t *testing.T) {
	repo := NewGormCompanyRepository(setupTestDB(t))
	ctx := context.Background()

	approved := newApprovedCompany(t, "91310000MA1FL8XQ3K", 1000)
	require.NoError(t, repo.Save(ctx, approved))

	pending, err := company.Submit(company.Profile{
		Name:         "Shenzhen Electronics",
		LicenseNo:    "91440300MA5DC1234X",
		ContactName:  "Zhang San",
		ContactPhone: "13900000000",
	}, approved.CreatedBy)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, pending))

	count, err := repo.CountByStatus(ctx, company.StatusPendingReview)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	filter := shared.DefaultFilter()
	filter.Search = "shenzhen"
	companies, total, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, companies, 1)
	assert.Equal(t, pending.ID, companies[0].ID)

	filter = shared.DefaultFilter()
	filter.Filters["status"] = string(company.StatusApproved)
	companies, total, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, approved.ID, companies[0].ID)
}
