package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultIdempotencyTTL is how long a handled event id is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStats counts what an IdempotentHandler did with its deliveries.
type IdempotencyStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// IdempotentHandler lets each event id through to the wrapped handler at
// most once. Keys are scoped by name, so two handlers subscribed to the
// same event type do not suppress each other.
//
// The id is claimed before the handler runs. A failed run is therefore not
// retried on redelivery.
type IdempotentHandler struct {
	name  string
	next  shared.EventHandler
	store shared.IdempotencyStore
	ttl   time.Duration
	log   *zap.Logger

	processed, duplicate, failed atomic.Int64
}

// NewIdempotentHandler wraps next. A zero ttl means DefaultIdempotencyTTL.
func NewIdempotentHandler(name string, next shared.EventHandler, store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) *IdempotentHandler {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotentHandler{name: name, next: next, store: store, ttl: ttl, log: logger}
}

func (h *IdempotentHandler) EventTypes() []string { return h.next.EventTypes() }

// Handle forwards first deliveries. When the store cannot be reached the
// event is handled anyway, accepting a possible duplicate notification over
// a lost one.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	key := h.name + ":" + event.EventID().String()
	first, err := h.store.MarkProcessed(ctx, key, h.ttl)
	if err != nil {
		h.log.Warn("Idempotency store unavailable, handling event anyway", zap.String("key", key), zap.Error(err))
		first = true
	}
	if !first {
		h.duplicate.Add(1)
		h.log.Debug("Duplicate event skipped", zap.String("key", key))
		return nil
	}

	err = h.next.Handle(ctx, event)
	if err != nil {
		h.failed.Add(1)
	} else {
		h.processed.Add(1)
	}
	return err
}

func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed: h.processed.Load(),
		Duplicate: h.duplicate.Load(),
		Failed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
