package persistence

import (
	"strings"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyScope restricts a query to rows owned by companyID
func CompanyScope(companyID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("company_id = ?", companyID)
	}
}

// equalityScope adds "column = value" for each allowed key present in filters.
// Keys are column names, so only whitelisted keys reach the SQL.
func equalityScope(filters map[string]interface{}, allowed ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, key := range allowed {
			value, ok := filters[key]
			if !ok || value == nil {
				continue
			}
			if s, isString := value.(string); isString && s == "" {
				continue
			}
			db = db.Where(key+" = ?", value)
		}
		return db
	}
}

// createdRangeScope limits created_at to the filter window
func createdRangeScope(filter shared.Filter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.From != nil {
			db = db.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where("created_at < ?", *filter.To)
		}
		return db
	}
}

// searchScope matches the search term case-insensitively against any of the columns
func searchScope(search string, columns ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		search = strings.TrimSpace(search)
		if search == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + strings.ToLower(search) + "%"
		clauses := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, col := range columns {
			clauses[i] = "LOWER(" + col + ") LIKE ?"
			args[i] = pattern
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

// pageScope orders by a whitelisted column and applies limit and offset
func pageScope(filter shared.Filter, cols sortColumns, defaultSort string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(cols.orderBy(filter.OrderBy, filter.OrderDir, defaultSort)).
			Offset(filter.Offset()).
			Limit(filter.PageSize)
	}
}
