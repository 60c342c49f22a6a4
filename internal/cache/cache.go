package cache

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds a TTLCache when no size is configured.
const DefaultMaxEntries = 500

// TTLCache holds values for a fixed time from when they were stored. Freshness is checked
// on every Get; expired entries stay until overwritten or evicted, so a failed refresh
// never removes what was there. When full, Set evicts the entry with the oldest fetch time.
type TTLCache[V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	data       map[string]cacheEntry[V]
}

// cacheEntry stores a value with the instant it was fetched.
type cacheEntry[V any] struct {
	value     V
	fetchedAt time.Time
}

// NewTTLCache creates a cache whose entries are fresh while now-fetchedAt < ttl.
// maxEntries <= 0 uses DefaultMaxEntries. now defaults to time.Now.
func NewTTLCache[V any](ttl time.Duration, maxEntries int, now func() time.Time) *TTLCache[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if now == nil {
		now = time.Now
	}
	return &TTLCache[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        now,
		data:       make(map[string]cacheEntry[V]),
	}
}

// Get returns the value for key if present and fresh.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok || c.now().Sub(entry.fetchedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Age reports how long ago key was fetched, fresh or not.
func (c *TTLCache[V]) Age(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return 0, false
	}
	return c.now().Sub(entry.fetchedAt), true
}

// Set stores value under key stamped with the current time.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.data[key] = cacheEntry[V]{value: value, fetchedAt: c.now()}
}

// Len returns the number of stored entries, fresh or expired.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// TTL returns the freshness window.
func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *TTLCache[V]) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.data {
		if first || e.fetchedAt.Before(oldest) {
			oldestKey, oldest, first = k, e.fetchedAt, false
		}
	}
	if !first {
		delete(c.data, oldestKey)
	}
}
