package order

import (
	"context"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the interface for order persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, int64, error)
	// Save inserts or updates the order and appends unsaved history entries
	Save(ctx context.Context, o *Order) error
	// SaveWithLock is Save guarded by the optimistic version
	SaveWithLock(ctx context.Context, o *Order) error
	History(ctx context.Context, orderID uuid.UUID) ([]StatusChange, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	GenerateOrderNumber(ctx context.Context) (string, error)
}
