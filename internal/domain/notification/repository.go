package notification

import (
	"context"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ListFilter narrows a user's notification list
type ListFilter struct {
	shared.Filter
	UnreadOnly bool
	Kind       Kind
}

// Repository defines the interface for notification persistence
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	Update(ctx context.Context, n *Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	// FindForUser lists in-app notifications of a user
	FindForUser(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Notification, int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	// FindRetryable returns failed WeChat notifications with fewer than maxAttempts attempts
	FindRetryable(ctx context.Context, maxAttempts, limit int) ([]Notification, error)
}
