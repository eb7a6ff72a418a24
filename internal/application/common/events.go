package common

import (
	"context"

	"github.com/freightport/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EventSource is an aggregate that buffers domain events until they are published
type EventSource interface {
	PendingEvents() []shared.DomainEvent
	ClearEvents()
}

// PublishEvents publishes the buffered events of each source and clears them.
// The aggregates are already committed, so a publish failure is logged and
// never returned to the caller.
func PublishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, sources ...EventSource) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		events := src.PendingEvents()
		src.ClearEvents()
		if publisher == nil || len(events) == 0 {
			continue
		}
		if err := publisher.Publish(ctx, events...); err != nil && logger != nil {
			logger.Warn("Failed to publish domain events",
				zap.Int("count", len(events)),
				zap.String("first_event", events[0].EventType()),
				zap.Error(err))
		}
	}
}
