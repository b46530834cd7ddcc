package caching

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

type ReadOnlyCache interface {
	Get(ctx context.Context, key string, target any) error
}

type Cache interface {
	ReadOnlyCache
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// UseCache reads key through the cache and fills it from callback on a miss.
func UseCache[T any](ctx context.Context, cash Cache, key string, ttl time.Duration, callback func() (T, error)) (T, error) {
	return UseCacheWithRO(ctx, cash, cash, key, ttl, callback)
}

func UseCacheWithRO[T any](ctx context.Context, roCash ReadOnlyCache, cash Cache, key string, ttl time.Duration, callback func() (T, error)) (T, error) {
	var v T
	err := roCash.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// a broken cache must not block reads
		log.Println("cache get", key, err)
	}

	v, err = callback()
	if err != nil {
		return v, err
	}

	// fire and forget
	//nolint:errcheck
	cash.Set(ctx, key, v, ttl)
	return v, nil
}

// Invalidate drops keys, logging failures; a stale entry expires with its ttl anyway.
func Invalidate(ctx context.Context, cash Cache, keys ...string) {
	for _, key := range keys {
		if err := cash.Delete(ctx, key); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			log.Println("cache delete", key, err)
		}
	}
}

type CacheRedis struct {
	instance *cache.Cache
}

func (c *CacheRedis) Get(ctx context.Context, key string, target any) error {
	return c.instance.Get(ctx, key, target)
}

func (c *CacheRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.instance.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: value,
		TTL:   ttl,
	})
}

func (c *CacheRedis) Delete(ctx context.Context, key string) error {
	return c.instance.Delete(ctx, key)
}

func NewCacheRedis(client redis.UniversalClient, withLocalCache bool) (*CacheRedis, error) {
	var localCache cache.LocalCache
	if withLocalCache {
		localCache = cache.NewTinyLFU(10000, time.Minute)
	}
	return &CacheRedis{cache.New(&cache.Options{
		Redis:      client,
		LocalCache: localCache,
	})}, nil
}

type RedisClient interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// DeleteKeys removes every key matching pattern, on each master of a cluster.
func DeleteKeys(ctx context.Context, client redis.UniversalClient, pattern string) (int, error) {
	clusterClient, ok := client.(*redis.ClusterClient)
	if !ok {
		return deleteKeys(ctx, client, pattern)
	}

	total := 0
	err := clusterClient.ForEachMaster(ctx, func(ctx context.Context, c *redis.Client) error {
		n, err := deleteKeys(ctx, c, pattern)
		total += n
		return err
	})
	return total, err
}

func deleteKeys(ctx context.Context, client RedisClient, pattern string) (int, error) {
	var cursor uint64
	total := 0
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return total, err
		}
		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return total, err
			}
			total += len(keys)
		}
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}
