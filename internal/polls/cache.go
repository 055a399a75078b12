package polls

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/swarooperla/Live-Polling-System/internal/models"
)

const (
	activePollKey  = "poll:active"
	activePollTTL  = 30 * time.Second // bounds staleness if an invalidation is ever missed
	cacheOpTimeout = 2 * time.Second
)

// Cache is a read-through Redis cache for the active poll. Every reconnecting
// client asks for the active poll, so this keeps that query off Postgres.
// All methods are best-effort and nil-safe: without Redis the lookups simply
// fall through to the store.
type Cache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewCache creates an active-poll cache backed by Redis.
func NewCache(rdb *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

// Get returns the cached active poll, if present.
func (c *Cache) Get(ctx context.Context) (*models.Poll, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	body, err := c.rdb.Get(ctx, activePollKey).Bytes()
	if err != nil {
		return nil, false
	}
	var p models.Poll
	if err := json.Unmarshal(body, &p); err != nil {
		c.logger.Warn("decode cached poll", zap.Error(err))
		return nil, false
	}
	return &p, true
}

// Set stores the poll as the current active poll.
func (c *Cache) Set(ctx context.Context, p *models.Poll) {
	if c == nil || c.rdb == nil || p == nil {
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := c.rdb.Set(ctx, activePollKey, body, activePollTTL).Err(); err != nil {
		c.logger.Warn("cache active poll", zap.Error(err))
	}
}

// Invalidate drops the cached active poll.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := c.rdb.Del(ctx, activePollKey).Err(); err != nil {
		c.logger.Warn("invalidate active poll cache", zap.Error(err))
	}
}
