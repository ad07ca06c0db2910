package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kisanmitra/advisor/internal/config"
)

// Redis is a Cache backed by a Redis instance, for deployments where
// several advisor processes should share one cache. Redis expiry enforces
// the TTL; singleflight only dedupes within this process, which is
// acceptable per the cache contract.
type Redis struct {
	rdb    *redis.Client
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedis connects to Redis and verifies the connection with a PING.
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, eris.Wrap(err, "cache: redis ping")
	}
	return &Redis{rdb: rdb}, nil
}

// GetOrCompute implements Cache.
func (r *Redis) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, bool, error) {
	if value, ok := r.lookup(ctx, key); ok {
		r.hits.Add(1)
		return value, true, nil
	}
	r.misses.Add(1)

	val, err, _ := r.group.Do(key, func() (any, error) {
		if value, ok := r.lookup(ctx, key); ok {
			return value, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
			// A failed write only costs a recompute later.
			zap.L().Warn("cache: redis set failed", zap.String("key", key), zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

func (r *Redis) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("cache: redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// Stats implements Cache.
func (r *Redis) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}

// Close closes the underlying Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
