package billing

import (
	"context"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Totals aggregates outstanding money across bills
type Totals struct {
	Outstanding decimal.Decimal
	Overdue     decimal.Decimal
}

// Repository defines the interface for bill persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Bill, int64, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Bill, error)
	// FindPastDue returns ISSUED and PARTIAL_PAID bills due before asOf
	FindPastDue(ctx context.Context, asOf time.Time, limit int) ([]Bill, error)
	// Save persists the bill, replacing items and inserting new payments
	Save(ctx context.Context, b *Bill) error
	SaveWithLock(ctx context.Context, b *Bill) error
	// History returns the status history of a bill, oldest first
	History(ctx context.Context, billID uuid.UUID) ([]StatusChange, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	SumOutstanding(ctx context.Context) (Totals, error)
	GenerateBillNumber(ctx context.Context) (string, error)
}
