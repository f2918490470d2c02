package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache wraps a Store with Redis-backed caching for List. Mutations pass
// through and evict the cached lists of the touched table. A Fresh list
// always goes to the backing store and refreshes the cached copy.
type Cache struct {
	base   Store
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(base Store, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if base == nil {
		panic("store.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{base: base, redis: client, ttl: ttl, logger: logger}
}

func (c *Cache) List(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	key := listCacheKey(table, opts)
	if !opts.Fresh {
		if rows, ok := c.load(ctx, key); ok {
			return rows, nil
		}
	}

	rows, err := c.base.List(ctx, table, opts)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, rows)
	return rows, nil
}

func (c *Cache) Create(ctx context.Context, table string, rec Record) (Record, error) {
	out, err := c.base.Create(ctx, table, rec)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, table)
	return out, nil
}

func (c *Cache) Update(ctx context.Context, table string, id int64, patch Record) error {
	err := c.base.Update(ctx, table, id, patch)
	c.evict(ctx, table)
	return err
}

func (c *Cache) Delete(ctx context.Context, table string, id int64) error {
	err := c.base.Delete(ctx, table, id)
	c.evict(ctx, table)
	return err
}

func (c *Cache) load(ctx context.Context, key string) ([]Record, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	rows, err := decodeRecords(data)
	if err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return rows, true
}

func (c *Cache) store(ctx context.Context, key string, rows []Record) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) evict(ctx context.Context, table string) {
	if c.redis == nil {
		return
	}
	iter := c.redis.Scan(ctx, 0, tableCachePattern(table), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache scan failed", zap.String("table", table), zap.Error(err))
		return
	}
	if len(keys) > 0 {
		_ = c.redis.Del(ctx, keys...).Err()
	}
}

func listCacheKey(table string, opts ListOptions) string {
	return fmt.Sprintf("mc:list:%s:%s:%t", table, opts.OrderBy, opts.Desc)
}

func tableCachePattern(table string) string {
	return fmt.Sprintf("mc:list:%s:*", table)
}
