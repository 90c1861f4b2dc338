package cache

import (
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"
)

// A mixed workload of concurrent Set/Get/Delete/InvalidateByTag/Stats on
// random keys. Should pass under `-race` without detector reports, and
// the store/index invariant must hold afterwards.
func TestRace_MixedWorkload(t *testing.T) {
	c := New[[]byte](Options[[]byte]{
		MaxEntries:    4096,
		SweepInterval: 20 * time.Millisecond,
	}).(*cache[[]byte])
	t.Cleanup(func() { _ = c.Close() })

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 10_000
	tagspace := 32
	deadline := time.Now().Add(2 * time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(keyspace))
				tag := "tag:" + strconv.Itoa(r.Intn(tagspace))
				switch r.Intn(100) {
				case 0, 1, 2: // ~3% — invalidate a whole tag
					c.InvalidateByTag(tag)
				case 3, 4, 5, 6: // ~4% — Delete
					c.Delete(k)
				case 7, 8: // ~2% — Stats snapshot
					_ = c.Stats()
				case 9: // ~1% — Keys scan
					_ = c.Keys()
				default:
					if r.Intn(100) < 25 { // ~25% of the rest — Set
						c.Set(k, []byte("x"), SetOptions{
							TTL:  time.Duration(20+r.Intn(100)) * time.Millisecond,
							Tags: []string{tag},
						})
					} else {
						c.Get(k)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	// Every tag membership must still point at a live entry.
	c.mu.RLock()
	defer c.mu.RUnlock()
	for tag, bucket := range c.tags {
		if len(bucket) == 0 {
			t.Fatalf("empty bucket left dangling for tag %q", tag)
		}
		for key := range bucket {
			if _, ok := c.entries[key]; !ok {
				t.Fatalf("tag %q references removed key %q", tag, key)
			}
		}
	}
}

// Close racing with readers and writers must neither panic nor leave
// operations erroring: post-close calls are plain misses/no-ops.
func TestRace_CloseDuringTraffic(t *testing.T) {
	c := New[string](Options[string]{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 10_000; i++ {
			c.Set("k"+strconv.Itoa(i%64), "v", SetOptions{})
			c.Get("k" + strconv.Itoa(i%64))
		}
	}()
	go func() {
		defer wg.Done()
		time.Sleep(time.Millisecond)
		_ = c.Close()
		_ = c.Close()
	}()
	wg.Wait()

	if _, ok := c.Get("k0"); ok {
		t.Fatal("Get after Close must miss")
	}
}
