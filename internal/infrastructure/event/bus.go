package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/freightport/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Bus delivers domain events to handlers in-process. Delivery happens on the
// publisher's goroutine. Handler errors and panics are logged and never
// reach the publisher or the remaining handlers.
type Bus struct {
	routes  *routes
	logger  *zap.Logger
	closed  atomic.Bool
	pending sync.WaitGroup
}

// NewBus creates an open bus
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{routes: newRoutes(), logger: logger}
}

// Publish delivers events in order. It always returns nil; a closed bus
// drops the events with a warning.
func (b *Bus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.closed.Load() {
		b.logger.Warn("Event bus closed, dropping events", zap.Int("count", len(events)))
		return nil
	}
	b.pending.Add(1)
	defer b.pending.Done()

	for _, ev := range events {
		for _, h := range b.routes.match(ev.EventType()) {
			if err := deliver(ctx, h, ev); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("event_type", ev.EventType()),
					zap.Stringer("event_id", ev.EventID()),
					zap.Stringer("aggregate_id", ev.AggregateID()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe routes eventTypes to h. With no types given, h.EventTypes()
// decides, and an empty list there means every event.
func (b *Bus) Subscribe(h shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = h.EventTypes()
	}
	b.routes.add(h, eventTypes...)
	b.logger.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe drops h from every route
func (b *Bus) Unsubscribe(h shared.EventHandler) {
	b.routes.remove(h)
}

// Start reopens a closed bus
func (b *Bus) Start(context.Context) error {
	b.closed.Store(false)
	b.logger.Info("Event bus started", zap.Int("handlers", b.routes.distinct()))
	return nil
}

// Stop closes the bus and waits for publishes already under way
func (b *Bus) Stop(ctx context.Context) error {
	b.closed.Store(true)
	drained := make(chan struct{})
	go func() {
		b.pending.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop event bus: %w", ctx.Err())
	}
}

func deliver(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

var _ shared.EventBus = (*Bus)(nil)
