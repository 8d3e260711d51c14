// Package ratecache is a time-windowed memoization cache for resolved
// exchange rates and rate-table snapshots.
//
// Entries expire after a TTL and the cache is bounded by entry count;
// invalidation is purely time-based. Keys built with Bucket quantize a
// query timestamp to the TTL window, so repeated lookups within the same
// window share one entry and staleness is bounded by the TTL.
package ratecache

import (
	"sync"
	"time"
)

// Cache is a concurrency-safe TTL cache.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	maxSize int
}

type entry struct {
	value    any
	storedAt time.Time
}

// New creates a cache holding at most maxSize entries for up to ttl each.
func New(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Bucket quantizes t to the cache's TTL window. Keys for time-dependent
// values should include the bucket so a new window misses naturally.
func (c *Cache) Bucket(t time.Time) int64 {
	if c.ttl <= 0 {
		return t.UnixNano()
	}
	return t.UnixNano() / int64(c.ttl)
}

// Get returns the live value for key, if any.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if time.Since(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	return e.value, true
}

// Set stores value under key, evicting expired entries first and then the
// oldest live entry if the cache is still full.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxSize {
		c.evictLocked(now)
	}

	c.entries[key] = entry{value: value, storedAt: now}
}

// Purge drops every entry. Called when write operations must not serve
// stale values, e.g. after an asset precision change.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}

// Len returns the number of stored entries, including not yet collected
// expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *Cache) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}

	if len(c.entries) < c.maxSize {
		return
	}

	var (
		oldestKey string
		oldestAt  time.Time
	)

	for k, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.storedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
