// Package cache holds the redis-backed read-through caches and the token
// revocation store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogapi/pkg/logger"
)

const (
	keyPrefix = "blog:feed:"
	// genKey 当前代号；失效即自增，旧代的条目不再被读到，随 TTL 过期
	genKey = keyPrefix + "gen"
)

// TrendingKey 热门排行的缓存 key
func TrendingKey(limit int) string { return fmt.Sprintf("trending:%d", limit) }

// StatsKey 全站统计的缓存 key
const StatsKey = "stats"

// FeedCache caches derived feed data as JSON under a generation number.
// A nil client turns every call into a miss, so callers never branch on
// whether redis is configured.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

func NewFeedCache(client *redis.Client, ttl time.Duration) *FeedCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &FeedCache{client: client, ttl: ttl}
}

func (c *FeedCache) Enabled() bool { return c != nil && c.client != nil }

// Snapshot pins the current generation. Read it before loading from the
// database and Set through the same snapshot: a value computed before an
// Invalidate lands under the old generation and is never served.
type Snapshot struct {
	c   *FeedCache
	gen int64
}

func (c *FeedCache) Snapshot(ctx context.Context) Snapshot {
	if !c.Enabled() {
		return Snapshot{}
	}
	gen, err := c.client.Get(ctx, genKey).Int64()
	switch {
	case err == redis.Nil:
		gen = 0
	case err != nil:
		logger.Warn("feed cache generation read failed", zap.Error(err))
		return Snapshot{}
	}
	return Snapshot{c: c, gen: gen}
}

func (s Snapshot) key(k string) string { return fmt.Sprintf("%s%d:%s", keyPrefix, s.gen, k) }

// Get 命中时把 payload 解码到 dst 并返回 true
func (s Snapshot) Get(ctx context.Context, key string, dst interface{}) bool {
	if s.c == nil {
		return false
	}
	data, err := s.c.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("feed cache get failed", zap.String("key", key), zap.Error(err))
		}
		s.c.misses.Add(1)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.c.misses.Add(1)
		return false
	}
	s.c.hits.Add(1)
	return true
}

func (s Snapshot) Set(ctx context.Context, key string, v interface{}) {
	if s.c == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.c.client.Set(ctx, s.key(key), payload, s.c.ttl).Err(); err != nil {
		logger.Warn("feed cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate 切换到新一代，之前缓存的全部 feed 数据失效；写路径在事务提交后调用
func (c *FeedCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Incr(ctx, genKey).Err(); err != nil {
		logger.Warn("feed cache invalidate failed", zap.Error(err))
	}
}

// Counters reports hit/miss totals since start.
func (c *FeedCache) Counters() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}
