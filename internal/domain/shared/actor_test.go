package shared

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestActor_CanAccessCompany(t *testing.T) {
	own := uuid.New()
	other := uuid.New()

	customer := Actor{UserID: uuid.New(), Role: RoleCustomer, CompanyID: &own}
	assert.True(t, customer.CanAccessCompany(own))
	assert.False(t, customer.CanAccessCompany(other))

	orphan := Actor{UserID: uuid.New(), Role: RoleCustomer}
	assert.False(t, orphan.CanAccessCompany(own))

	operator := Actor{UserID: uuid.New(), Role: RoleOperator}
	assert.True(t, operator.CanAccessCompany(other))
}

func TestActor_RequireStaff(t *testing.T) {
	assert.NoError(t, Actor{Role: RoleAdmin}.RequireStaff())
	assert.NoError(t, Actor{Role: RoleOperator}.RequireStaff())
	assert.ErrorIs(t, Actor{Role: RoleCustomer}.RequireStaff(), ErrForbidden)
	assert.ErrorIs(t, Actor{Role: RoleOperator}.RequireAdmin(), ErrForbidden)
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := NewDomainError("NOT_FOUND", "Order not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(err))
	assert.False(t, errors.Is(err, ErrForbidden))

	wrapped := errors.Join(errors.New("context"), err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500, OrderDir: "sideways"}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, "created_at", f.OrderBy)
	assert.Equal(t, "desc", f.OrderDir)
	assert.NotNil(t, f.Filters)
	assert.Equal(t, 0, f.Offset())

	p := NewPaginated([]int{1, 2}, 41, 2, 20)
	assert.Equal(t, 3, p.TotalPages)
}
