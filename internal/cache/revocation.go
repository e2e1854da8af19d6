package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore 记录已注销的 token id（jti），保留到 token 自然过期
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type redisRevocations struct{ client *redis.Client }

func NewRedisRevocations(client *redis.Client) RevocationStore {
	return &redisRevocations{client: client}
}

func revokedKey(jti string) string { return "blog:revoked:" + jti }

func (r *redisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKey(jti), "1", ttl).Err()
}

func (r *redisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// memoryRevocations is used when redis is not configured (single process only).
type memoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocations() RevocationStore {
	return &memoryRevocations{entries: make(map[string]time.Time), now: time.Now}
}

func (m *memoryRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.entries {
		if now.After(exp) {
			delete(m.entries, k)
		}
	}
	m.entries[jti] = now.Add(ttl)
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[jti]
	if !ok {
		return false, nil
	}
	if m.now().After(exp) {
		delete(m.entries, jti)
		return false, nil
	}
	return true, nil
}
