package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// EntryCache implements ports.EntryCache using Redis. It remembers committed
// entry ids so replays are rejected before a database transaction is opened.
type EntryCache struct {
	client *goredis.Client
	prefix string
}

// NewEntryCache creates a new Redis-backed entry cache.
func NewEntryCache(client *goredis.Client) *EntryCache {
	return &EntryCache{
		client: client,
		prefix: keyPrefix,
	}
}

// Get retrieves a cached entry by key.
// Returns nil, nil if the key does not exist.
func (c *EntryCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis entry cache get: %w", err)
	}
	return val, nil
}

// Set stores a committed entry with TTL.
func (c *EntryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis entry cache set: %w", err)
	}
	return nil
}
