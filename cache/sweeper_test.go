package cache

import (
	"testing"
	"time"
)

// The sweeper removes expired entries that nobody reads, tag
// memberships included. Generous margins keep this stable under -race.
func TestSweeper_RemovesExpired(t *testing.T) {
	t.Parallel()

	c := New[string](Options[string]{
		SweepInterval: 10 * time.Millisecond,
	}).(*cache[string])
	t.Cleanup(func() { _ = c.Close() })

	c.Set("short", "v", SetOptions{TTL: 30 * time.Millisecond, Tags: []string{"t"}})
	c.Set("long", "v", SetOptions{TTL: time.Hour, Tags: []string{"t"}})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Len() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	// No Get was issued for "short": only the sweeper can have removed it.
	if got := c.Len(); got != 1 {
		t.Fatalf("sweeper must remove the expired entry, len=%d", got)
	}

	c.mu.RLock()
	bucket := c.tags["t"]
	_, stale := bucket["short"]
	c.mu.RUnlock()
	if stale {
		t.Fatal("swept entry must leave its tag bucket")
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Fatalf("sweep removal must count as eviction, got %d", s.Evictions)
	}
}

// One entry whose eviction callback panics must not stop the sweep from
// processing the rest.
func TestSweeper_IsolatesPerEntryFailures(t *testing.T) {
	t.Parallel()

	c := New[string](Options[string]{
		SweepInterval: 10 * time.Millisecond,
		Logger:        discardLogger(),
		OnEvict: func(key string, _ string, _ EvictReason) {
			if key == "boom" {
				panic("callback failure")
			}
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	c.Set("boom", "v", SetOptions{TTL: 20 * time.Millisecond})
	c.Set("ok", "v", SetOptions{TTL: 20 * time.Millisecond})
	c.Set("keep", "v", SetOptions{TTL: time.Hour})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Len() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("sweep must survive the panicking entry, len=%d", got)
	}

	// The cache keeps working after the failed cycle.
	c.Set("after", "v", SetOptions{})
	if _, ok := c.Get("after"); !ok {
		t.Fatal("cache must stay functional after a sweep failure")
	}
}
