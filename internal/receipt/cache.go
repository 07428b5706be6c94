package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "dutchpay:receipt:"

// Cache stores successful analyses by image digest.
type Cache interface {
	Get(ctx context.Context, digest string) (*Analysis, bool, error)
	Set(ctx context.Context, digest string, analysis *Analysis) error
}

// RedisCache is a Cache backed by Redis string keys with a TTL.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache creates a cache on client. A zero ttl keeps entries forever.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached analysis for digest. A miss is not an error.
func (c *RedisCache) Get(ctx context.Context, digest string) (*Analysis, bool, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+digest).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached analysis: %w", err)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached analysis: %w", err)
	}
	return &analysis, true, nil
}

// Set stores analysis under digest.
func (c *RedisCache) Set(ctx context.Context, digest string, analysis *Analysis) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+digest, string(raw), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache analysis: %w", err)
	}
	return nil
}
