package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// nextYearlyNumber returns the next number of the form PREFIX-YYYY-NNNNN by
// reading the highest number issued this year. The unique index on column
// catches the rare race between two concurrent callers.
func nextYearlyNumber(ctx context.Context, db *gorm.DB, model any, column, prefix string, now time.Time) (string, error) {
	yearPrefix := fmt.Sprintf("%s-%d-", prefix, now.Year())

	var numbers []string
	err := db.WithContext(ctx).
		Model(model).
		Where(column+" LIKE ?", yearPrefix+"%").
		Order(column+" DESC").
		Limit(1).
		Pluck(column, &numbers).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	next := 1
	if len(numbers) > 0 {
		var num int
		if _, scanErr := fmt.Sscanf(strings.TrimPrefix(numbers[0], yearPrefix), "%d", &num); scanErr == nil {
			next = num + 1
		}
	}
	return fmt.Sprintf("%s%05d", yearPrefix, next), nil
}
