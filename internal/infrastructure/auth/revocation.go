package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations records tokens that must be rejected before they expire.
// User-wide revocation compares issue times at second precision because JWT
// timestamps carry whole seconds.
type Revocations interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	TokenRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeUser rejects every token of the user issued up to now
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	UserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

const (
	revokedJTIKey  = "fp:revoked:jti:"
	revokedUserKey = "fp:revoked:user:"
)

// RedisRevocations shares revocations across API instances.
type RedisRevocations struct {
	rdb redis.UniversalClient
	now func() time.Time
}

func NewRedisRevocations(rdb redis.UniversalClient) *RedisRevocations {
	return &RedisRevocations{rdb: rdb, now: time.Now}
}

func (r *RedisRevocations) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, revokedJTIKey+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token %s: %w", jti, err)
	}
	return nil
}

func (r *RedisRevocations) TokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedJTIKey+jti).Result()
	if err != nil {
		return false, fmt.Errorf("lookup revoked token: %w", err)
	}
	return n == 1, nil
}

func (r *RedisRevocations) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, revokedUserKey+userID, r.now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke sessions of %s: %w", userID, err)
	}
	return nil
}

func (r *RedisRevocations) UserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := r.rdb.Get(ctx, revokedUserKey+userID).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup revoked user: %w", err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("revocation of %s holds %q: %w", userID, raw, err)
	}
	return issuedAt.Unix() <= cutoff, nil
}

// MemoryRevocations serves a single instance when Redis is disabled.
type MemoryRevocations struct {
	mu     sync.Mutex
	tokens map[string]time.Time // jti -> expiry
	users  map[string]int64     // user -> cutoff in unix seconds
	now    func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		tokens: map[string]time.Time{},
		users:  map[string]int64{},
		now:    time.Now,
	}
}

func (m *MemoryRevocations) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	m.tokens[jti] = m.now().Add(ttl)
	m.mu.Unlock()
	return nil
}

func (m *MemoryRevocations) TokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.tokens[jti]
	if ok && !m.now().Before(until) {
		delete(m.tokens, jti)
		ok = false
	}
	return ok, nil
}

// RevokeUser ignores ttl; the cutoff lives as long as the process.
func (m *MemoryRevocations) RevokeUser(_ context.Context, userID string, _ time.Duration) error {
	m.mu.Lock()
	m.users[userID] = m.now().Unix()
	m.mu.Unlock()
	return nil
}

func (m *MemoryRevocations) UserRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	m.mu.Lock()
	cutoff, ok := m.users[userID]
	m.mu.Unlock()
	return ok && issuedAt.Unix() <= cutoff, nil
}

var (
	_ Revocations = (*RedisRevocations)(nil)
	_ Revocations = (*MemoryRevocations)(nil)
)
