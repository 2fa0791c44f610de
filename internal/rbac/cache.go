package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Cache stores resolved permission sets keyed by user id.
type Cache interface {
	Get(ctx context.Context, userID string) ([]Permission, bool, error)
	Set(ctx context.Context, userID string, perms []Permission) error
	Invalidate(ctx context.Context, userID string) error
	Purge(ctx context.Context) error
}

const (
	redisVersionKey = "rbac:perms:version"
	redisKeyPrefix  = "rbac:perms"
)

// RedisCache shares resolved sets between processes. Purge bumps a version
// counter so stale keys age out through their TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache instantiates the cache helper.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, redisVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, redisVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, redisVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *RedisCache) key(ctx context.Context, userID string) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return redisKeyPrefix + ":" + strconv.FormatInt(ver, 10) + ":" + userID, nil
}

// Get returns the cached set, reporting false on a miss.
func (c *RedisCache) Get(ctx context.Context, userID string) ([]Permission, bool, error) {
	key, err := c.key(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var perms []Permission
	if err := json.Unmarshal(payload, &perms); err != nil {
		return nil, false, err
	}
	return perms, true, nil
}

// Set stores perms for the configured TTL.
func (c *RedisCache) Set(ctx context.Context, userID string, perms []Permission) error {
	if perms == nil {
		perms = []Permission{}
	}
	key, err := c.key(ctx, userID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate drops the cached set for one user.
func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	key, err := c.key(ctx, userID)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, key).Err()
}

// Purge invalidates every cached set by incrementing the version.
func (c *RedisCache) Purge(ctx context.Context) error {
	return c.client.Incr(ctx, redisVersionKey).Err()
}

// MemoryCache keeps resolved sets in-process with a size bound and TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, []Permission]
}

// NewMemoryCache builds an in-process cache holding at most size entries.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 1024
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []Permission](size, nil, ttl)}
}

// Get returns a copy of the cached set.
func (c *MemoryCache) Get(_ context.Context, userID string) ([]Permission, bool, error) {
	perms, ok := c.lru.Get(userID)
	if !ok {
		return nil, false, nil
	}
	return append([]Permission{}, perms...), true, nil
}

// Set stores a copy of perms.
func (c *MemoryCache) Set(_ context.Context, userID string, perms []Permission) error {
	c.lru.Add(userID, append([]Permission{}, perms...))
	return nil
}

// Invalidate drops the cached set for one user.
func (c *MemoryCache) Invalidate(_ context.Context, userID string) error {
	c.lru.Remove(userID)
	return nil
}

// Purge drops every entry.
func (c *MemoryCache) Purge(_ context.Context) error {
	c.lru.Purge()
	return nil
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*MemoryCache)(nil)
)
