package shipment

import (
	"context"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the interface for shipment persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Shipment, error)
	FindByReference(ctx context.Context, companyID uuid.UUID, ref Reference) (*Shipment, error)
	// FindBySubscriptionID resolves provider webhooks
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*Shipment, error)
	// FindSubscribedByNumber resolves provider webhooks that only carry the tracking number
	FindSubscribedByNumber(ctx context.Context, number string) ([]Shipment, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Shipment, int64, error)
	// Save persists the shipment and inserts events not yet stored
	Save(ctx context.Context, s *Shipment) error
	// SaveWithLock is Save guarded by the version the shipment was loaded at.
	// It returns shared.ErrConcurrencyConflict when another writer got there first.
	SaveWithLock(ctx context.Context, s *Shipment) error
	Events(ctx context.Context, shipmentID uuid.UUID) ([]TrackingEvent, error)
}
