package cache

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds an InMemoryCache. Rendered pages carry a PNG each,
// so the bound is small.
const DefaultMaxEntries = 64

// cacheEntry holds a stored value with its write time.
type cacheEntry struct {
	value     string
	timestamp time.Time
}

// InMemoryCache is a thread-safe in-memory store with TTL support. When full,
// the oldest entry is evicted.
type InMemoryCache struct {
	entries    map[string]cacheEntry
	mu         sync.RWMutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// MemoryOption is a functional option for configuring an InMemoryCache.
type MemoryOption func(*InMemoryCache)

// WithMaxEntries sets the entry bound. Zero or negative means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(c *InMemoryCache) {
		c.maxEntries = n
	}
}

// NewInMemoryCache creates a new in-memory store with the specified TTL.
// If ttl is 0 or negative, entries never expire.
func NewInMemoryCache(ttl time.Duration, opts ...MemoryOption) *InMemoryCache {
	if ttl < 0 {
		ttl = 0
	}
	c := &InMemoryCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value if present and not expired.
func (c *InMemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}

	if c.expired(entry) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.timestamp.Equal(entry.timestamp) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false
	}

	return entry.value, true
}

// Set stores a value, evicting the oldest entry if the store is full.
func (c *InMemoryCache) Set(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	c.entries[key] = cacheEntry{
		value:     value,
		timestamp: c.now(),
	}
	return nil
}

// Delete removes a value.
func (c *InMemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Len returns the number of entries (including expired ones).
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *InMemoryCache) expired(e cacheEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.timestamp) > c.ttl
}

// evictOldestLocked drops expired entries, or the single oldest one if none
// have expired.
func (c *InMemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	removed := false

	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
			removed = true
			continue
		}
		if oldestKey == "" || e.timestamp.Before(oldest) {
			oldestKey, oldest = key, e.timestamp
		}
	}

	if !removed && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Verify InMemoryCache implements Store
var _ Store = (*InMemoryCache)(nil)
