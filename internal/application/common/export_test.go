package common

import (
	"context"
	"testing"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectPages(t *testing.T) {
	rows := make([]int, 250)
	for i := range rows {
		rows[i] = i
	}
	var pages []int
	fetch := func(_ context.Context, f shared.Filter) ([]int, int64, error) {
		pages = append(pages, f.Page)
		start := f.Offset()
		if start >= len(rows) {
			return nil, int64(len(rows)), nil
		}
		end := min(start+f.PageSize, len(rows))
		return rows[start:end], int64(len(rows)), nil
	}

	got, err := CollectPages(context.Background(), shared.Filter{Page: 7, Search: "x"}, 1000, fetch)
	require.NoError(t, err)
	assert.Len(t, got, 250)
	assert.Equal(t, []int{1, 2, 3}, pages)

	pages = nil
	got, err = CollectPages(context.Background(), shared.Filter{}, 150, fetch)
	require.NoError(t, err)
	assert.Len(t, got, 150)
	assert.Equal(t, []int{1, 2}, pages)
}
