// Package cache provides a Redis read-through cache for device lookups
// that sit on the hot ingest and aggregation paths.
package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const timezoneKeyPrefix = "vitals:tz:"

// TimezoneSource is the uncached lookup the cache wraps.
type TimezoneSource interface {
	FirstDeviceTimezone(ctx context.Context, userID string) (string, error)
}

// TimezoneCache caches per-user timezone hints. Nil-safe: with no Redis
// client configured it passes every call straight through.
type TimezoneCache struct {
	client *redis.Client
	source TimezoneSource
	ttl    time.Duration
	logger *log.Logger
}

// NewTimezoneCache constructs a cache. client may be nil.
func NewTimezoneCache(client *redis.Client, source TimezoneSource, ttl time.Duration, logger *log.Logger) (*TimezoneCache, error) {
	if source == nil {
		return nil, errors.New("timezone cache: nil source")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TimezoneCache{client: client, source: source, ttl: ttl, logger: logger}, nil
}

// FirstDeviceTimezone serves from Redis when possible and refreshes the
// entry on a miss. Cache failures degrade to the uncached lookup.
func (c *TimezoneCache) FirstDeviceTimezone(ctx context.Context, userID string) (string, error) {
	if c == nil || c.source == nil {
		return "", errors.New("timezone cache: nil source")
	}
	if c.client == nil || userID == "" {
		return c.source.FirstDeviceTimezone(ctx, userID)
	}

	key := timezoneKeyPrefix + userID
	cached, err := c.client.Get(ctx, key).Result()
	if err == nil && cached != "" {
		return cached, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Printf("timezone cache: get error: %v", err)
	}

	zone, err := c.source.FirstDeviceTimezone(ctx, userID)
	if err != nil {
		return "", err
	}
	if zone != "" {
		if err := c.client.Set(ctx, key, zone, c.ttl).Err(); err != nil {
			c.logger.Printf("timezone cache: set error: %v", err)
		}
	}
	return zone, nil
}

// Invalidate drops the cached hint for a user, e.g. after a device
// config update.
func (c *TimezoneCache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.client == nil || userID == "" {
		return
	}
	if err := c.client.Del(ctx, timezoneKeyPrefix+userID).Err(); err != nil {
		c.logger.Printf("timezone cache: del error: %v", err)
	}
}
