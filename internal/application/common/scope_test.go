package common

import (
	"testing"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeFilter(t *testing.T) {
	companyID := uuid.New()
	customer := shared.Actor{UserID: uuid.New(), Role: shared.RoleCustomer, CompanyID: &companyID}
	staff := shared.Actor{UserID: uuid.New(), Role: shared.RoleOperator}

	t.Run("customer is pinned to own company", func(t *testing.T) {
		in := shared.Filter{Filters: map[string]interface{}{"status": "PENDING"}}
		out, err := ScopeFilter(customer, in)
		require.NoError(t, err)
		assert.Equal(t, companyID.String(), out.Filters["company_id"])
		assert.Equal(t, "PENDING", out.Filters["status"])
		_, leaked := in.Filters["company_id"]
		assert.False(t, leaked)
	})

	t.Run("customer asking for another company", func(t *testing.T) {
		in := shared.Filter{Filters: map[string]interface{}{"company_id": uuid.NewString()}}
		_, err := ScopeFilter(customer, in)
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("customer without company", func(t *testing.T) {
		_, err := ScopeFilter(shared.Actor{Role: shared.RoleCustomer}, shared.Filter{})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("staff filters freely", func(t *testing.T) {
		other := uuid.NewString()
		out, err := ScopeFilter(staff, shared.Filter{Filters: map[string]interface{}{"company_id": other}})
		require.NoError(t, err)
		assert.Equal(t, other, out.Filters["company_id"])
	})
}
