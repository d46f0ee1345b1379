package provider

import (
	"sync"
	"time"
)

// DefaultTTL is the cache lifetime used by network-backed providers.
const DefaultTTL = 5 * time.Minute

// CacheEntry pairs a payload with the moment it was stored.
type CacheEntry[T any] struct {
	Value    T
	StoredAt time.Time
}

// Fresh reports whether the entry is still valid at now. A non-positive ttl
// never expires.
func (e *CacheEntry[T]) Fresh(now time.Time, ttl time.Duration) bool {
	if e == nil {
		return false
	}
	if ttl <= 0 {
		return true
	}
	return now.Sub(e.StoredAt) < ttl
}

// Cache is a goroutine-safe map of entity id to entry with a fixed TTL.
// Expired entries are kept until overwritten so callers can still serve them
// when the backend is unreachable.
type Cache[T any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*CacheEntry[T]
}

// NewCache builds a cache. A nil clock defaults to time.Now.
func NewCache[T any](ttl time.Duration, now func() time.Time) *Cache[T] {
	if now == nil {
		now = time.Now
	}
	return &Cache[T]{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]*CacheEntry[T]),
	}
}

// TTL returns the configured lifetime.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// Get returns the entry for key while it is fresh. Repeated calls within the
// TTL return the same entry pointer.
func (c *Cache[T]) Get(key string) (*CacheEntry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || !entry.Fresh(c.now(), c.ttl) {
		return nil, false
	}
	return entry, true
}

// Stale returns the entry for key regardless of age.
func (c *Cache[T]) Stale(key string) (*CacheEntry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Put stores value under key and returns the new entry.
func (c *Cache[T]) Put(key string, value T) *CacheEntry[T] {
	entry := &CacheEntry[T]{Value: value, StoredAt: c.now()}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return entry
}

// Delete drops key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*CacheEntry[T])
	c.mu.Unlock()
}

// Prune drops expired entries and returns how many were removed.
func (c *Cache[T]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !entry.Fresh(now, c.ttl) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len counts stored entries, fresh or not.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the stored keys in no particular order.
func (c *Cache[T]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}
