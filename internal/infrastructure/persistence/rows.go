package persistence

import (
	"context"

	"gorm.io/gorm"
)

// domainRow is a persistence model that maps back to a domain value.
type domainRow[D any] interface {
	ToDomain() *D
}

// firstWhere loads a single row or returns shared.ErrNotFound.
func firstWhere[M any](ctx context.Context, db *gorm.DB, query string, args ...any) (*M, error) {
	var row M
	if err := db.WithContext(ctx).Where(query, args...).First(&row).Error; err != nil {
		return nil, translateError(err)
	}
	return &row, nil
}

func existsWhere[M any](ctx context.Context, db *gorm.DB, query string, args ...any) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(new(M)).Where(query, args...).Limit(1).Count(&n).Error
	return n > 0, err
}

func toDomainAll[D any, M any, PM interface {
	*M
	domainRow[D]
}](rows []M) []*D {
	out := make([]*D, len(rows))
	for i := range rows {
		out[i] = PM(&rows[i]).ToDomain()
	}
	return out
}
