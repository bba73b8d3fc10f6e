// Package cache keeps single-product lookups in Redis for a short TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/models"
)

func InitRedis(ctx context.Context, addr, password string, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("addr", addr))
	return rdb, nil
}

// ProductCache stores products as JSON. Redis failures are logged and treated
// as misses so the database stays the source of truth.
type ProductCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewProductCache(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *ProductCache {
	return &ProductCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *ProductCache) Get(ctx context.Context, key string) (models.Product, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("product cache read failed", zap.String("key", key), zap.Error(err))
		}
		return models.Product{}, false
	}

	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("product cache entry unreadable", zap.String("key", key), zap.Error(err))
		return models.Product{}, false
	}
	return p, true
}

func (c *ProductCache) Set(ctx context.Context, key string, product models.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("product cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *ProductCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("product cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
