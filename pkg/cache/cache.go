// Package cache provides small read caches for filtered and aggregated
// results. The TTL cache is a convenience layer, not a source of truth: stale
// reads are bounded only by TTL and callers must invalidate after mutations.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL applies when Set is called with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	ItemCount int     `json:"item_count"`
}

type entry struct {
	value     interface{}
	writtenAt time.Time
	ttl       time.Duration
}

// Cache is a string-keyed TTL store. Expired entries are evicted lazily on
// access; there is no background sweep and no capacity bound.
//
// A Cache is an explicitly constructed handle owned by its composition root,
// never a package-level singleton.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
	metrics metrics
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// newWithClock is used by tests to control time.
func newWithClock(now func() time.Time) *Cache {
	c := New()
	c.now = now
	return c
}

// Set stores value under key. A non-positive ttl falls back to DefaultTTL.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, writtenAt: c.now(), ttl: ttl}
	c.mu.Unlock()
}

// Get returns the live value for key, or (nil, false) when absent or expired.
// An expired entry is removed on the way out.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.metrics.miss()
		return nil, false
	}
	if c.now().Sub(e.writtenAt) > e.ttl {
		delete(c.entries, key)
		c.metrics.miss()
		return nil, false
	}
	c.metrics.hit()
	return e.value, true
}

// Has reports whether key holds a live value. Expired entries count as absent
// and are evicted.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Remove deletes key if present.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Invalidate removes every key containing pattern as a substring. An empty
// pattern clears the whole cache.
func (c *Cache) Invalidate(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		c.entries = make(map[string]entry)
		return
	}
	for k := range c.entries {
		if strings.Contains(k, pattern) {
			delete(c.entries, k)
		}
	}
}

// Clear removes everything.
func (c *Cache) Clear() {
	c.Invalidate("")
}

// Len returns the number of stored entries, including any not yet lazily
// evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit/miss counters since construction.
func (c *Cache) Stats() Stats {
	hits := c.metrics.hits.Load()
	misses := c.metrics.misses.Load()

	s := Stats{Hits: hits, Misses: misses, ItemCount: c.Len()}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

type metrics struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (m *metrics) hit()  { m.hits.Add(1) }
func (m *metrics) miss() { m.misses.Add(1) }
