package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SettingsKey holds the JSON-encoded moderation settings snapshot.
const SettingsKey = "moderation:settings"

// SettingsCache is a cache-aside store for the moderation settings key/value map.
// Every settings mutation must call Invalidate so the next run reads fresh values.
type SettingsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSettingsCache returns a cache; a nil client disables caching.
func NewSettingsCache(rdb *redis.Client, ttl time.Duration) *SettingsCache {
	return &SettingsCache{rdb: rdb, ttl: ttl}
}

// Load returns the cached snapshot or calls fetch and caches its result.
// Redis failures fall through to fetch.
func (c *SettingsCache) Load(ctx context.Context, fetch func(context.Context) (map[string]string, error)) (map[string]string, error) {
	if c == nil || c.rdb == nil || c.ttl <= 0 {
		return fetch(ctx)
	}

	raw, err := c.rdb.Get(ctx, SettingsKey).Bytes()
	if err == nil {
		var values map[string]string
		if jsonErr := json.Unmarshal(raw, &values); jsonErr == nil {
			return values, nil
		}
		slog.WarnContext(ctx, "discarding corrupt settings cache entry")
	} else if !errors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "settings cache read failed", "error", err)
	}

	values, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(values); err == nil {
		if err := c.rdb.Set(ctx, SettingsKey, data, c.ttl).Err(); err != nil {
			slog.WarnContext(ctx, "settings cache write failed", "error", err)
		}
	}
	return values, nil
}

// Invalidate drops the cached snapshot.
func (c *SettingsCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, SettingsKey).Err(); err != nil {
		slog.WarnContext(ctx, "settings cache invalidation failed", "error", err)
	}
}
