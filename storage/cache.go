package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"join-board/domain"
)

// Cache wraps a gateway with Redis-backed caching for loads. Saves go to the
// wrapped gateway first and evict the cached collection afterwards.
type Cache struct {
	base      domain.Gateway
	redis     *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCache creates a caching gateway using the provided Redis client and TTL.
func NewCache(base domain.Gateway, client *redis.Client, ttl time.Duration, namespace string) *Cache {
	if base == nil {
		panic("storage.NewCache: base gateway is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if namespace == "" {
		namespace = "join"
	}
	return &Cache{base: base, redis: client, ttl: ttl, namespace: namespace}
}

func (c *Cache) LoadTasks(ctx context.Context) ([]any, error) {
	return c.load(ctx, c.tasksCacheKey(), c.base.LoadTasks)
}

func (c *Cache) LoadContacts(ctx context.Context) ([]any, error) {
	return c.load(ctx, c.contactsCacheKey(), c.base.LoadContacts)
}

func (c *Cache) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	if err := c.base.SaveTasks(ctx, tasks); err != nil {
		return err
	}
	c.evict(ctx, c.tasksCacheKey())
	return nil
}

func (c *Cache) SaveContacts(ctx context.Context, contacts []domain.Contact) error {
	if err := c.base.SaveContacts(ctx, contacts); err != nil {
		return err
	}
	c.evict(ctx, c.contactsCacheKey())
	return nil
}

func (c *Cache) load(ctx context.Context, key string, fetch func(context.Context) ([]any, error)) ([]any, error) {
	if records, ok := c.fromCache(ctx, key); ok {
		return records, nil
	}
	records, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, records)
	return records, nil
}

func (c *Cache) fromCache(ctx context.Context, key string) ([]any, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing gateway without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var records []any
	if err := sonic.Unmarshal(data, &records); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return flattenCollection(records), true
}

func (c *Cache) store(ctx context.Context, key string, records []any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(records)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, key).Err()
}

func (c *Cache) tasksCacheKey() string {
	return c.namespace + ":cache:tasks"
}

func (c *Cache) contactsCacheKey() string {
	return c.namespace + ":cache:contacts"
}
