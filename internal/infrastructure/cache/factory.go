package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores bundles the cache-backed stores the application needs. Client is
// nil when the stores are in memory.
type Stores struct {
	Client      *redis.Client
	Idempotency shared.IdempotencyStore
	Values      ValueCache
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewStores builds Redis-backed stores when Redis is enabled and reachable.
// Otherwise it falls back to in-memory stores and logs a warning.
func NewStores(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Stores {
	if cfg.Enabled {
		client, err := NewRedisClient(ctx, cfg)
		if err == nil {
			logger.Info("using redis for caches", zap.String("addr", cfg.Addr()))
			return &Stores{
				Client:      client,
				Idempotency: NewRedisIdempotencyStore(client, DefaultIdempotencyPrefix),
				Values:      NewRedisValueCache(client, "fp:cache:"),
			}
		}
		logger.Warn("redis unavailable, falling back to in-memory caches; state is not shared across instances",
			zap.Error(err))
	}
	return NewInMemoryStores()
}

// NewInMemoryStores builds process-local stores
func NewInMemoryStores() *Stores {
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Values:      NewInMemoryValueCache(),
	}
}

// Close releases the stores and the Redis client
func (s *Stores) Close() error {
	_ = s.Idempotency.Close()
	if c, ok := s.Values.(*InMemoryValueCache); ok {
		_ = c.Close()
	}
	if s.Client != nil {
		return s.Client.Close()
	}
	return nil
}
