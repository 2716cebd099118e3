// Package cache implements the two-tier response cache: a small in-process
// hot tier in front of a durable store (Postgres or Redis). Reads fail open,
// writes and invalidations fail closed so a durable-tier outage can never
// leave stale data that outlives the hot TTL.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/flowsync-hq/flowsync/internal/store"
)

// DefaultTTL is the entry lifetime used when callers pass a non-positive TTL.
const DefaultTTL = 5 * time.Minute

type hotEntry struct {
	expiresAt time.Time
	data      json.RawMessage
}

// Stats is a point-in-time snapshot of the hot tier, exposed on the admin
// cache endpoint.
type Stats struct {
	Entries     int   `json:"entries"`
	ApproxBytes int64 `json:"approx_bytes"`
}

// TieredCache layers an in-process map over a store.CacheStore. The hot tier
// holds entries for at most hotTTL regardless of the entry's own TTL, so a
// missed invalidation on one process converges within hotTTL.
type TieredCache struct {
	durable store.CacheStore
	hot     map[string]hotEntry
	hotTTL  time.Duration
	mu      sync.RWMutex
}

// New returns a TieredCache over durable. hotTTL caps how long any entry may
// live in the hot tier; non-positive values fall back to one minute.
func New(durable store.CacheStore, hotTTL time.Duration) *TieredCache {
	if hotTTL <= 0 {
		hotTTL = time.Minute
	}
	return &TieredCache{
		durable: durable,
		hot:     make(map[string]hotEntry),
		hotTTL:  hotTTL,
	}
}

// Get returns the cached value for key, consulting the hot tier first and
// falling back to the durable store. A durable-tier error is logged and
// reported as a miss.
func (c *TieredCache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.hot[key]
	c.mu.RUnlock()

	if ok {
		if now.Before(entry.expiresAt) {
			return entry.data, true
		}
		c.mu.Lock()
		if cur, ok := c.hot[key]; ok && !now.Before(cur.expiresAt) {
			delete(c.hot, key)
		}
		c.mu.Unlock()
	}

	row, err := c.durable.Get(ctx, key)
	if err != nil {
		if err != store.ErrNotFound {
			slog.WarnContext(ctx, "durable cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}

	c.promote(key, row.Data, row.ExpiresAt, now)
	return row.Data, true
}

// GetInto unmarshals the cached value for key into dest. It returns false on
// a miss or if the stored bytes do not decode into dest.
func (c *TieredCache) GetInto(ctx context.Context, key string, dest any) bool {
	data, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		slog.WarnContext(ctx, "cached value failed to decode, treating as miss", "key", key, "error", err)
		return false
	}
	return true
}

// Set writes value through to the durable store first and only then admits it
// to the hot tier, so a durable write failure leaves both tiers without the
// new value. value is marshalled to JSON; a non-positive ttl uses DefaultTTL.
func (c *TieredCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	if err := c.durable.Upsert(ctx, key, data, expiresAt); err != nil {
		return err
	}

	c.promote(key, data, expiresAt, now)
	return nil
}

// Delete removes key from both tiers. The hot tier is cleared even when the
// durable delete fails, so the error surfaces without reviving the entry
// locally.
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.hot, key)
	c.mu.Unlock()

	return c.durable.Delete(ctx, key)
}

// Clear removes every entry matching pattern from both tiers. Both tiers
// apply the same anchored-glob predicate, so they stay in agreement about
// what an invalidation covers.
func (c *TieredCache) Clear(ctx context.Context, pattern string) error {
	c.mu.Lock()
	if pattern == "*" {
		c.hot = make(map[string]hotEntry)
	} else {
		for key := range c.hot {
			if Match(key, pattern) {
				delete(c.hot, key)
			}
		}
	}
	c.mu.Unlock()

	return c.durable.DeleteWhere(ctx, pattern)
}

// SweepExpired drops expired entries from both tiers. It is called on a
// timer from the server; expiry is also enforced lazily on every read, so
// the sweep only bounds memory, it is not load-bearing for correctness.
func (c *TieredCache) SweepExpired(ctx context.Context) error {
	now := time.Now()

	c.mu.Lock()
	for key, entry := range c.hot {
		if !now.Before(entry.expiresAt) {
			delete(c.hot, key)
		}
	}
	c.mu.Unlock()

	return c.durable.DeleteExpired(ctx, now)
}

// Stats reports the current hot-tier footprint.
func (c *TieredCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var bytes int64
	for key, entry := range c.hot {
		bytes += int64(len(key) + len(entry.data))
	}
	return Stats{Entries: len(c.hot), ApproxBytes: bytes}
}

// promote admits an entry to the hot tier with its lifetime capped at hotTTL.
func (c *TieredCache) promote(key string, data json.RawMessage, expiresAt time.Time, now time.Time) {
	hotExpiry := now.Add(c.hotTTL)
	if expiresAt.Before(hotExpiry) {
		hotExpiry = expiresAt
	}

	c.mu.Lock()
	c.hot[key] = hotEntry{data: data, expiresAt: hotExpiry}
	c.mu.Unlock()
}
