package cache

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestCacheSetGet(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := newWithClock(clock.now)

	c.Set("k", "v", time.Second)

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get(k) = %v, %v; want v, true", got, ok)
	}

	// Just past the TTL the entry is gone for both Get and Has.
	clock.advance(time.Second + time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Has("k") {
		t.Error("Has should report expired entry as absent")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be lazily evicted, Len() = %d", c.Len())
	}
}

func TestCacheTTLBoundary(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := newWithClock(clock.now)

	c.Set("k", 42, time.Second)

	// Exactly at the TTL the entry is still live; expiry is strict.
	clock.advance(time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry at exactly TTL age should still be live")
	}
}

func TestCacheDefaultTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := newWithClock(clock.now)

	c.Set("k", "v", 0)

	clock.advance(DefaultTTL - time.Second)
	if !c.Has("k") {
		t.Error("entry should survive until the default TTL")
	}
	clock.advance(2 * time.Second)
	if c.Has("k") {
		t.Error("entry should expire after the default TTL")
	}
}

func TestCacheRemove(t *testing.T) {
	c := New()
	c.Set("k", "v", time.Minute)
	c.Remove("k")
	if c.Has("k") {
		t.Error("removed entry still present")
	}
	// Removing an absent key is a no-op.
	c.Remove("missing")
}

func TestCacheInvalidateSubstring(t *testing.T) {
	c := New()
	c.Set("approvals:U1:pending", 1, time.Minute)
	c.Set("approvals:U2:pending", 2, time.Minute)
	c.Set("liquidation:west", 3, time.Minute)

	c.Invalidate("approvals:")

	if c.Has("approvals:U1:pending") || c.Has("approvals:U2:pending") {
		t.Error("matching keys should be invalidated")
	}
	if !c.Has("liquidation:west") {
		t.Error("non-matching key should survive")
	}
}

func TestCacheInvalidateEmptyPatternClearsAll(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Invalidate("")

	if c.Len() != 0 {
		t.Errorf("expected empty cache, Len() = %d", c.Len())
	}
}

func TestCacheClear(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Clear()
	if c.Len() != 0 {
		t.Error("Clear should drop everything")
	}
}

func TestCacheOverwrite(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := newWithClock(clock.now)

	c.Set("k", "old", time.Second)
	clock.advance(900 * time.Millisecond)
	c.Set("k", "new", time.Second)

	// The rewrite resets the TTL window.
	clock.advance(500 * time.Millisecond)
	got, ok := c.Get("k")
	if !ok || got != "new" {
		t.Fatalf("Get(k) = %v, %v; want new, true", got, ok)
	}
}

func TestCacheStats(t *testing.T) {
	c := New()
	c.Set("k", "v", time.Minute)

	c.Get("k")       // hit
	c.Get("missing") // miss

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit / 1 miss", s)
	}
	if s.HitRate != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", s.HitRate)
	}
}

func TestBoundedCache(t *testing.T) {
	b := NewBounded(10, time.Minute)

	b.Set("k", "v")
	got, ok := b.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get(k) = %v, %v; want v, true", got, ok)
	}

	b.Remove("k")
	if _, ok := b.Get("k"); ok {
		t.Error("removed entry still present")
	}

	b.Set("a", 1)
	b.Set("b", 2)
	b.Purge()
	if _, ok := b.Get("a"); ok {
		t.Error("purge should drop everything")
	}

	s := b.Stats()
	if s.Misses == 0 {
		t.Error("expected recorded misses")
	}
}
