package cache

import (
	"context"
	"testing"
	"time"

	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryValueCache(t *testing.T) {
	c := NewInMemoryValueCache()
	defer c.Close()
	ctx := context.Background()

	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	c.m.now = func() time.Time { return now }

	_, ok, err := c.Get(ctx, "wechat:access_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "wechat:access_token", "tok-1", 7000*time.Second))
	val, ok, err := c.Get(ctx, "wechat:access_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", val)

	now = now.Add(2 * time.Hour)
	_, ok, _ = c.Get(ctx, "wechat:access_token")
	assert.False(t, ok, "expired value is a miss")

	require.NoError(t, c.Set(ctx, "ocr:token", "tok-2", time.Hour))
	require.NoError(t, c.Delete(ctx, "ocr:token"))
	_, ok, _ = c.Get(ctx, "ocr:token")
	assert.False(t, ok)
}

func TestNewStores_FallsBackToMemory(t *testing.T) {
	t.Run("redis disabled", func(t *testing.T) {
		stores := NewStores(context.Background(), config.RedisConfig{}, zap.NewNop())
		defer stores.Close()

		assert.Nil(t, stores.Client)
		assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Idempotency)
		assert.IsType(t, &InMemoryValueCache{}, stores.Values)
	})

	t.Run("redis unreachable", func(t *testing.T) {
		stores := NewStores(context.Background(), config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}, zap.NewNop())
		defer stores.Close()

		assert.Nil(t, stores.Client)
		assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Idempotency)
	})
}
