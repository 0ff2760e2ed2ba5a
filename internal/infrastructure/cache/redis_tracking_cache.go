// Package cache holds the Redis-backed tracking lookup cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

// DefaultTTL bounds how stale a cached tracking answer may be
const DefaultTTL = 5 * time.Minute

const keyPrefix = "cargo:tracking:"

// RedisTrackingCache stores tracking answers as JSON under one key per
// tracking ID.
type RedisTrackingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTrackingCache creates a cache. A non-positive ttl uses DefaultTTL.
func NewRedisTrackingCache(client *redis.Client, ttl time.Duration) *RedisTrackingCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTrackingCache{client: client, ttl: ttl}
}

// Key returns the Redis key for trackingID
func Key(trackingID string) string {
	return keyPrefix + trackingID
}

// Get returns the cached record, or nil on a miss
func (c *RedisTrackingCache) Get(ctx context.Context, trackingID string) (*domain.ShipmentRecord, error) {
	data, err := c.client.Get(ctx, Key(trackingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tracking cache: %w", err)
	}

	var record domain.ShipmentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		// A corrupt entry is dropped and treated as a miss.
		c.client.Del(ctx, Key(trackingID))
		return nil, nil
	}
	if record.Events == nil {
		record.Events = []domain.TimelineEvent{}
	}
	return &record, nil
}

// Set caches record under its tracking ID
func (c *RedisTrackingCache) Set(ctx context.Context, record *domain.ShipmentRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode tracking cache entry: %w", err)
	}
	if err := c.client.Set(ctx, Key(record.TrackingID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write tracking cache: %w", err)
	}
	return nil
}

// Invalidate drops the entries for trackingIDs
func (c *RedisTrackingCache) Invalidate(ctx context.Context, trackingIDs ...string) error {
	if len(trackingIDs) == 0 {
		return nil
	}
	keys := make([]string, len(trackingIDs))
	for i, id := range trackingIDs {
		keys[i] = Key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tracking cache: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (c *RedisTrackingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
