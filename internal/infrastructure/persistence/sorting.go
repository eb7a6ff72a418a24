package persistence

import (
	"slices"
	"strings"

	"gorm.io/gorm/clause"
)

// sortColumns whitelists the columns a list may be ordered by. Anything
// else falls back to the list's default so client input never reaches SQL.
type sortColumns []string

func (s sortColumns) orderBy(field, dir, fallback string) clause.OrderByColumn {
	col := strings.TrimSpace(field)
	if !slices.Contains(s, col) {
		col = fallback
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: col},
		Desc:   !strings.EqualFold(strings.TrimSpace(dir), "asc"),
	}
}

var (
	userSort = sortColumns{
		"id", "created_at", "updated_at", "username", "email",
		"display_name", "role", "status", "last_login_at",
	}
	companySort = sortColumns{
		"id", "created_at", "updated_at", "name", "license_no",
		"status", "credit_limit", "credit_used", "reviewed_at",
	}
	orderSort = sortColumns{
		"id", "created_at", "updated_at", "order_number", "status", "service_type",
		"origin_port", "destination_port", "quoted_amount", "cargo_ready_date",
		"confirmed_at", "completed_at",
	}
	shipmentSort = sortColumns{
		"id", "created_at", "updated_at", "tracking_number",
		"status", "etd", "eta", "last_event_at",
	}
	billSort = sortColumns{
		"id", "created_at", "updated_at", "bill_number", "status",
		"amount", "paid_amount", "due_date", "issued_at",
	}
	notificationSort = sortColumns{"id", "created_at", "kind", "status", "read_at"}
)
