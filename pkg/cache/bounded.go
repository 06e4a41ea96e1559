package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Bounded is a capacity-limited alternative to Cache for hot keys such as
// per-user summary results. It trades the substring invalidation of Cache
// for an LRU bound; invalidation is all-or-nothing.
type Bounded struct {
	cache   *lru.LRU[string, interface{}]
	metrics metrics
}

// NewBounded creates an LRU cache holding at most maxEntries values, each
// expiring after ttl.
func NewBounded(maxEntries int, ttl time.Duration) *Bounded {
	if maxEntries < 10 {
		maxEntries = 10
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Bounded{
		cache: lru.NewLRU[string, interface{}](maxEntries, nil, ttl),
	}
}

// Get returns the cached value for key, if live.
func (b *Bounded) Get(key string) (interface{}, bool) {
	v, ok := b.cache.Get(key)
	if !ok {
		b.metrics.miss()
		return nil, false
	}
	b.metrics.hit()
	return v, true
}

// Set stores value under key.
func (b *Bounded) Set(key string, value interface{}) {
	b.cache.Add(key, value)
}

// Remove deletes key if present.
func (b *Bounded) Remove(key string) {
	b.cache.Remove(key)
}

// Purge drops every entry.
func (b *Bounded) Purge() {
	b.cache.Purge()
}

// Stats returns hit/miss counters since construction.
func (b *Bounded) Stats() Stats {
	hits := b.metrics.hits.Load()
	misses := b.metrics.misses.Load()

	s := Stats{Hits: hits, Misses: misses, ItemCount: b.cache.Len()}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}
