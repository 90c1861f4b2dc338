package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

type fakeClock struct{ t int64 }

func (f *fakeClock) NowUnixNano() int64  { return f.t }
func (f *fakeClock) add(d time.Duration) { f.t += int64(d) }

// discardLogger keeps expected sweep/sizer failures out of test output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// For all keys never Set, Get is a miss — and a miss is a value, not an error.
func TestCache_MissOnUnknownKey(t *testing.T) {
	t.Parallel()

	c := New[string](Options[string]{})
	t.Cleanup(func() { _ = c.Close() })

	if v, ok := c.Get("nope"); ok {
		t.Fatalf("unexpected hit: %q", v)
	}
	if got := c.Stats().Misses; got != 1 {
		t.Fatalf("misses: want 1, got %d", got)
	}
}

// Set followed immediately by Get returns the stored value and counts a hit.
func TestCache_SetThenGet(t *testing.T) {
	t.Parallel()

	c := New[int](Options[int]{})
	t.Cleanup(func() { _ = c.Close() })

	c.Set("a", 42, SetOptions{TTL: time.Second})
	if v, ok := c.Get("a"); !ok || v != 42 {
		t.Fatalf("Get a: want 42, got %v ok=%v", v, ok)
	}

	// Replacement starts a new lifecycle: fresh value, no resurrection.
	c.Set("a", 43, SetOptions{})
	if v, _ := c.Get("a"); v != 43 {
		t.Fatalf("after replace: want 43, got %v", v)
	}
}

// Uses a fake clock to avoid timing flakiness.
// An entry past its TTL is removed on access and reported as a miss,
// and its tag memberships disappear with it.
func TestCache_LazyExpiry_FakeClock(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	c := New[string](Options[string]{Clock: clk}).(*cache[string])
	t.Cleanup(func() { _ = c.Close() })

	c.Set("x", "v", SetOptions{TTL: time.Second, Tags: []string{"t1", "t2"}})
	if _, ok := c.Get("x"); !ok {
		t.Fatal("fresh entry must hit")
	}

	clk.add(1100 * time.Millisecond)
	if _, ok := c.Get("x"); ok {
		t.Fatal("expired entry must miss")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) != 0 {
		t.Fatalf("entry store must be empty, has %d", len(c.entries))
	}
	for tag, bucket := range c.tags {
		t.Fatalf("tag bucket %q must be gone, has %d keys", tag, len(bucket))
	}
}

// An entry aged exactly its TTL is still live; the boundary is strict.
func TestCache_ExpiryBoundaryIsStrict(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	c := New[string](Options[string]{Clock: clk})
	t.Cleanup(func() { _ = c.Close() })

	c.Set("x", "v", SetOptions{TTL: time.Second})
	clk.add(time.Second)
	if _, ok := c.Get("x"); !ok {
		t.Fatal("entry aged exactly TTL must still hit")
	}
	clk.add(1)
	if _, ok := c.Get("x"); ok {
		t.Fatal("entry aged TTL+1ns must miss")
	}
}

// Replacing a live entry detaches its old tag memberships so no stale
// references leak into the index.
func TestCache_ReplaceDetachesOldTags(t *testing.T) {
	t.Parallel()

	c := New[string](Options[string]{}).(*cache[string])
	t.Cleanup(func() { _ = c.Close() })

	c.Set("k", "v1", SetOptions{Tags: []string{"old"}})
	c.Set("k", "v2", SetOptions{Tags: []string{"new"}})

	if n := c.InvalidateByTag("old"); n != 0 {
		t.Fatalf("stale tag must be empty, removed %d", n)
	}
	if v, ok := c.Get("k"); !ok || v != "v2" {
		t.Fatalf("entry must survive stale-tag invalidation, got %q ok=%v", v, ok)
	}
	if n := c.InvalidateByTag("new"); n != 1 {
		t.Fatalf("current tag must remove 1, removed %d", n)
	}
}

// Delete reports whether the key existed; deleting again is a no-op.
func TestCache_Delete(t *testing.T) {
	t.Parallel()

	c := New[string](Options[string]{})
	t.Cleanup(func() { _ = c.Close() })

	c.Set("a", "1", SetOptions{Tags: []string{"t"}})
	if !c.Delete("a") {
		t.Fatal("Delete of present key must return true")
	}
	if c.Delete("a") {
		t.Fatal("second Delete must return false")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("key must be absent after Delete")
	}
}

// Stats after 3 hits and 1 miss reports hitRate = 0.75.
func TestCache_StatsHitRate(t *testing.T) {
	t.Parallel()

	c := New[string](Options[string]{})
	t.Cleanup(func() { _ = c.Close() })

	c.Set("a", "v", SetOptions{})
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 3 || s.Misses != 1 {
		t.Fatalf("counters: want 3/1, got %d/%d", s.Hits, s.Misses)
	}
	if s.HitRate != 0.75 {
		t.Fatalf("hit rate: want 0.75, got %v", s.HitRate)
	}
	if s.Entries != 1 || s.MemoryBytes <= 0 {
		t.Fatalf("size: entries=%d mem=%d", s.Entries, s.MemoryBytes)
	}
}

// A fresh cache with no traffic reports a hit rate of 0, not NaN.
func TestCache_StatsZeroTraffic(t *testing.T) {
	t.Parallel()

	c := New[string](Options[string]{})
	t.Cleanup(func() { _ = c.Close() })

	if got := c.Stats().HitRate; got != 0 {
		t.Fatalf("hit rate with no traffic: want 0, got %v", got)
	}
}

// Clear drops entries, tag buckets, the memory estimate, and the counters.
func TestCache_ClearResetsEverything(t *testing.T) {
	t.Parallel()

	c := New[string](Options[string]{}).(*cache[string])
	t.Cleanup(func() { _ = c.Close() })

	c.Set("a", "1", SetOptions{Tags: []string{"t"}})
	c.Get("a")
	c.Get("missing")
	c.Clear()

	s := c.Stats()
	if s.Entries != 0 || s.Hits != 0 || s.Misses != 0 || s.Evictions != 0 || s.MemoryBytes != 0 {
		t.Fatalf("stats after Clear must be zero, got %+v", s)
	}

	c.mu.RLock()
	tagCount := len(c.tags)
	c.mu.RUnlock()
	if tagCount != 0 {
		t.Fatalf("tag index after Clear must be empty, has %d buckets", tagCount)
	}
}

// Close is idempotent and leaves the cache answering misses, not errors.
func TestCache_CloseIdempotent(t *testing.T) {
	t.Parallel()

	c := New[string](Options[string]{})
	c.Set("a", "1", SetOptions{})

	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, ok := c.Get("a"); ok {
		t.Fatal("Get after Close must miss")
	}
	c.Set("b", "2", SetOptions{}) // ignored, must not panic
	if n := c.InvalidateByTag("t"); n != 0 {
		t.Fatalf("InvalidateByTag after Close: want 0, got %d", n)
	}
}

// Len counts resident entries; Keys skips expired-but-unswept ones.
func TestCache_LenAndKeys(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	c := New[string](Options[string]{Clock: clk})
	t.Cleanup(func() { _ = c.Close() })

	c.Set("short", "v", SetOptions{TTL: time.Second})
	c.Set("long", "v", SetOptions{TTL: time.Hour})
	clk.add(2 * time.Second)

	if got := c.Len(); got != 2 {
		t.Fatalf("Len counts resident entries: want 2, got %d", got)
	}
	keys := c.Keys()
	if len(keys) != 1 || keys[0] != "long" {
		t.Fatalf("Keys must skip expired entries, got %v", keys)
	}
}

// A Sizer that fails must not fail Set; the entry is charged the
// fallback estimate instead.
func TestCache_SizerFailureFallsBack(t *testing.T) {
	t.Parallel()

	c := New[chan int](Options[chan int]{Logger: discardLogger()})
	t.Cleanup(func() { _ = c.Close() })

	// channels are not JSON-serializable
	c.Set("ch", make(chan int), SetOptions{})
	if _, ok := c.Get("ch"); !ok {
		t.Fatal("entry must be stored despite sizer failure")
	}
	want := int64(2*len("ch")) + fallbackValueBytes + entryOverheadBytes
	if got := c.Stats().MemoryBytes; got != want {
		t.Fatalf("fallback estimate: want %d, got %d", want, got)
	}
}

// A panicking Sizer degrades the same way an erroring one does.
func TestCache_SizerPanicFallsBack(t *testing.T) {
	t.Parallel()

	c := New[int](Options[int]{
		Logger: discardLogger(),
		Sizer: SizerFunc[int](func(int) (int64, error) {
			panic("boom")
		}),
	})
	t.Cleanup(func() { _ = c.Close() })

	c.Set("k", 7, SetOptions{})
	if v, ok := c.Get("k"); !ok || v != 7 {
		t.Fatalf("Set must survive sizer panic, got %v ok=%v", v, ok)
	}
}

// Concurrent GetOrLoad calls for the same key trigger the Loader once.
func TestCache_GetOrLoad_Singleflight(t *testing.T) {
	var calls int64

	c := New[string](Options[string]{
		Loader: func(_ context.Context, key string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(5 * time.Millisecond) // simulate I/O
			return "v:" + key, nil
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	const N = 64
	var g errgroup.Group
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < N; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad(ctx, "k")
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}
}

// GetOrLoad without a configured Loader returns ErrNoLoader.
func TestCache_GetOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	c := New[string](Options[string]{})
	t.Cleanup(func() { _ = c.Close() })

	if _, err := c.GetOrLoad(context.Background(), "k"); err != ErrNoLoader {
		t.Fatalf("want ErrNoLoader, got %v", err)
	}
}
