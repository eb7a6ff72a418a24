package common

import (
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ScopeFilter pins a list query to the actor's company unless the actor is
// staff. Customers that have not onboarded yet are forbidden.
func ScopeFilter(actor shared.Actor, filter shared.Filter) (shared.Filter, error) {
	scoped := make(map[string]interface{}, len(filter.Filters)+1)
	for k, v := range filter.Filters {
		scoped[k] = v
	}
	filter.Filters = scoped

	if actor.IsStaff() {
		return filter, nil
	}
	if actor.CompanyID == nil {
		return filter, shared.ErrForbidden
	}
	if requested, ok := scoped["company_id"]; ok && requested != nil && requested != "" {
		if id, err := toUUID(requested); err != nil || id != *actor.CompanyID {
			return filter, shared.ErrForbidden
		}
	}
	scoped["company_id"] = actor.CompanyID.String()
	return filter, nil
}

func toUUID(v interface{}) (uuid.UUID, error) {
	switch id := v.(type) {
	case uuid.UUID:
		return id, nil
	case string:
		return uuid.Parse(id)
	default:
		return uuid.Nil, shared.ErrInvalidInput
	}
}
