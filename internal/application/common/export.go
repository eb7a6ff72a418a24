package common

import (
	"context"

	"github.com/freightport/backend/internal/domain/shared"
)

// MaxExportRows caps the rows written to one spreadsheet export
const MaxExportRows = 5000

// CollectPages walks a paged query from the first page until it has every
// row or limit rows, whichever comes first.
func CollectPages[T any](ctx context.Context, filter shared.Filter, limit int, fetch func(context.Context, shared.Filter) ([]T, int64, error)) ([]T, error) {
	filter.PageSize = shared.MaxPageSize
	filter = filter.Normalize()
	filter.Page = 1

	var out []T
	for len(out) < limit {
		rows, total, err := fetch(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		if len(rows) < filter.PageSize || int64(len(out)) >= total {
			break
		}
		filter.Page++
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
