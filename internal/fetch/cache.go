package fetch

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache keeps recently fetched markup in Redis so a burst of subscribes
// to the same event does not refetch the page. TTL is short; the update
// cycle must always observe fresh availability.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, url string) (string, bool) {
	body, err := c.rdb.Get(ctx, cacheKey(url)).Result()
	if err != nil {
		return "", false
	}
	return body, true
}

func (c *Cache) Set(ctx context.Context, url, body string) {
	// Best effort: a failed write just means the next fetch hits the site.
	c.rdb.Set(ctx, cacheKey(url), body, c.ttl)
}

func cacheKey(url string) string {
	return "page_cache:" + url
}
