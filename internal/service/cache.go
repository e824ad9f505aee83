package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	productListKey = "products:all"
	productGenKey  = "products:gen"
)

// ProductCache holds the rendered product listing between catalog changes.
//
// Every invalidation bumps a generation. A listing read from the database
// is stored only under the generation observed before the read, so a
// listing that raced with an invalidation is dropped instead of cached.
type ProductCache interface {
	GetProducts(ctx context.Context) ([]ProductView, bool, error)
	Generation(ctx context.Context) (int64, error)
	SetProducts(ctx context.Context, gen int64, products []ProductView) error
	InvalidateProducts(ctx context.Context) error
}

type redisProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProductCache(rdb *redis.Client, ttl time.Duration) ProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisProductCache{rdb: rdb, ttl: ttl}
}

func (c *redisProductCache) GetProducts(ctx context.Context) ([]ProductView, bool, error) {
	raw, err := c.rdb.Get(ctx, productListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	var out []ProductView
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, errors.Wrap(err, "decode cached products")
	}
	return out, true, nil
}

func (c *redisProductCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, productGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, errors.Wrap(err, "redis get generation")
}

// SetProducts writes the listing only while the generation still equals gen.
// WATCH aborts the write if an invalidation lands between the check and EXEC.
func (c *redisProductCache) SetProducts(ctx context.Context, gen int64, products []ProductView) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return errors.Wrap(err, "encode products")
	}
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, productGenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, productListKey, raw, c.ttl)
			return nil
		})
		return err
	}, productGenKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return errors.Wrap(err, "redis set")
}

func (c *redisProductCache) InvalidateProducts(ctx context.Context) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, productGenKey)
		pipe.Del(ctx, productListKey)
		return nil
	})
	return errors.Wrap(err, "redis invalidate")
}

type noopProductCache struct{}

// NoopProductCache disables caching.
func NoopProductCache() ProductCache { return noopProductCache{} }

func (noopProductCache) GetProducts(context.Context) ([]ProductView, bool, error) {
	return nil, false, nil
}
func (noopProductCache) Generation(context.Context) (int64, error)               { return 0, nil }
func (noopProductCache) SetProducts(context.Context, int64, []ProductView) error { return nil }
func (noopProductCache) InvalidateProducts(context.Context) error                { return nil }
