package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed keys (event ids, webhook deliveries) for a TTL
type IdempotencyStore interface {
	// MarkProcessed atomically records key and reports whether it was new
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}
