// ABOUTME: Response cache holding last-known-good upstream payloads
// ABOUTME: JSON-encodes values over a Store and never surfaces store failures

package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/markalston/acreditaciones-portal/metrics"
)

// DefaultTTL applies when Set is called without an explicit TTL.
const DefaultTTL = time.Hour

// Stats reports lookup counters since the cache was created.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// Cache is an optimization, not a dependency: every operation reports
// failure as a miss or false and logs the cause.
type Cache struct {
	store      Store
	defaultTTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// New creates a response cache over store.
func New(store Store) *Cache {
	return &Cache{store: store, defaultTTL: DefaultTTL}
}

// Set stores value under key. The first ttl argument overrides DefaultTTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl ...time.Duration) bool {
	expiration := c.defaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		expiration = ttl[0]
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.errors.Add(1)
		slog.Error("Cache set failed", "key", key, "error", err)
		return false
	}

	if err := c.store.Set(ctx, key, data, expiration); err != nil {
		c.errors.Add(1)
		slog.Error("Cache set failed", "key", key, "error", err)
		return false
	}

	slog.Debug("Cache set", "key", key, "ttl", expiration)
	return true
}

// Get decodes the value under key into dest and reports whether it was found.
// On a miss dest is left untouched so callers can pre-fill defaults.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.errors.Add(1)
		metrics.RecordCacheLookup("error")
		slog.Error("Cache get failed", "key", key, "error", err)
		return false
	}
	if !found {
		c.misses.Add(1)
		metrics.RecordCacheLookup("miss")
		slog.Debug("Cache miss", "key", key)
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.errors.Add(1)
		metrics.RecordCacheLookup("error")
		slog.Error("Cache decode failed", "key", key, "error", err)
		return false
	}

	c.hits.Add(1)
	metrics.RecordCacheLookup("hit")
	slog.Debug("Cache hit", "key", key)
	return true
}

func (c *Cache) Delete(ctx context.Context, key string) bool {
	if err := c.store.Delete(ctx, key); err != nil {
		c.errors.Add(1)
		slog.Error("Cache delete failed", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) Exists(ctx context.Context, key string) bool {
	_, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.errors.Add(1)
		slog.Error("Cache exists check failed", "key", key, "error", err)
		return false
	}
	return found
}

func (c *Cache) Clear(ctx context.Context) bool {
	if err := c.store.Clear(ctx); err != nil {
		c.errors.Add(1)
		slog.Error("Cache clear failed", "error", err)
		return false
	}
	return true
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errors.Load(),
	}
}
