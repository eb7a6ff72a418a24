package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValueCache stores short-lived string values such as upstream access tokens
type ValueCache interface {
	// Get returns the value and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisValueCache implements ValueCache on Redis
type RedisValueCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisValueCache creates a cache using keyPrefix for every key
func NewRedisValueCache(client redis.UniversalClient, keyPrefix string) *RedisValueCache {
	return &RedisValueCache{client: client, keyPrefix: keyPrefix}
}

// Get reads a key; a missing key is not an error
func (c *RedisValueCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

// Set writes a key with a TTL
func (c *RedisValueCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (c *RedisValueCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.keyPrefix+key).Err()
}

// InMemoryValueCache implements ValueCache in process memory
type InMemoryValueCache struct {
	m *ttlMap
}

// NewInMemoryValueCache creates a cache and starts its sweeper
func NewInMemoryValueCache() *InMemoryValueCache {
	return &InMemoryValueCache{m: newTTLMap()}
}

func (c *InMemoryValueCache) Get(_ context.Context, key string) (string, bool, error) {
	val, ok := c.m.get(key)
	return val, ok, nil
}

func (c *InMemoryValueCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.m.set(key, value, ttl)
	return nil
}

func (c *InMemoryValueCache) Delete(_ context.Context, key string) error {
	c.m.delete(key)
	return nil
}

// Close stops the sweeper
func (c *InMemoryValueCache) Close() error {
	c.m.close()
	return nil
}

var (
	_ ValueCache = (*RedisValueCache)(nil)
	_ ValueCache = (*InMemoryValueCache)(nil)
)
