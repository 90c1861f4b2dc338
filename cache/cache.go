package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/motorline/tagcache/internal/singleflight"
	"github.com/motorline/tagcache/policy"
)

// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
var ErrNoLoader = errors.New("cache: no Loader provided")

// cache is the single-lock implementation behind the Cache interface.
// The entry store, the tag index, and the memory estimate are mutated
// together under mu so a reader can never observe a tag bucket pointing
// at a removed entry or vice versa.
type cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[V]
	tags    map[string]map[string]struct{} // tag -> set of keys
	mem     int64                          // footprint estimate, bytes

	opt   Options[V]
	stats counters

	closed atomic.Bool

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[string, V]

	// Sweeper lifecycle. closeOnce makes Close idempotent.
	closeOnce sync.Once
	shutdown  chan struct{}
	done      chan struct{}
}

// New constructs a cache with the provided Options and starts the
// background expiry sweeper. Call Close to stop it.
func New[V any](opt Options[V]) Cache[V] {
	if opt.DefaultTTL <= 0 {
		opt.DefaultTTL = DefaultTTL
	}
	if opt.MaxEntries <= 0 {
		opt.MaxEntries = DefaultMaxEntries
	}
	if opt.MemoryThresholdBytes <= 0 {
		opt.MemoryThresholdBytes = DefaultMemoryThresholdBytes
	}
	if opt.SweepInterval <= 0 {
		opt.SweepInterval = DefaultSweepInterval
	}
	if opt.Sizer == nil {
		opt.Sizer = JSONSizer[V]{}
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.MemoryPolicy == nil {
		opt.MemoryPolicy = policy.ValuePerAge{}
	}
	if opt.CountPolicy == nil {
		opt.CountPolicy = policy.Recency{
			HitCreditMillis: int64(opt.HitRecencyCredit / time.Millisecond),
		}
	}

	c := &cache[V]{
		entries:  make(map[string]*entry[V]),
		tags:     make(map[string]map[string]struct{}),
		opt:      opt,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.sweep()
	return c
}

// ---- Cache[V] implementation ----

// Get returns the value for key and a presence flag.
// An entry past its TTL is removed here (lazy expiry) and reported as a
// miss; this check, not the sweeper, is the precise expiry boundary.
func (c *cache[V]) Get(key string) (V, bool) {
	var zero V
	if c.closed.Load() {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.misses.Add(1)
		c.opt.Metrics.Miss()
		return zero, false
	}
	if e.expired(c.now()) {
		c.evictLocked(e, EvictTTL)
		c.stats.misses.Add(1)
		c.opt.Metrics.Miss()
		return zero, false
	}

	e.hits++
	c.stats.hits.Add(1)
	c.opt.Metrics.Hit()
	return e.val, true
}

// Set inserts or replaces the entry at key.
func (c *cache[V]) Set(key string, value V, opts SetOptions) {
	if c.closed.Load() {
		return
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.opt.DefaultTTL
	}
	// Size the value before taking the lock; serialization is the one
	// potentially slow step in the write path.
	size := c.sizeOf(key, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacement: unlink the old entry (and its tag memberships) first
	// so no stale references leak into the index.
	if old, ok := c.entries[key]; ok {
		c.removeEntryLocked(old)
	}

	if c.mem > c.opt.MemoryThresholdBytes {
		c.evictMemoryPressureLocked()
	}

	e := &entry[V]{
		key:      key,
		val:      value,
		created:  c.now(),
		ttl:      ttl,
		tags:     dedupTags(opts.Tags),
		priority: opts.Priority,
		size:     size,
	}
	c.entries[key] = e
	c.attachTagsLocked(e)
	c.mem += size

	if len(c.entries) > c.opt.MaxEntries {
		c.evictCountPressureLocked()
	}
	c.opt.Metrics.Size(len(c.entries), c.mem)
}

// Delete removes the entry and its tag memberships.
func (c *cache[V]) Delete(key string) bool {
	if c.closed.Load() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeEntryLocked(e)
	c.opt.Metrics.Size(len(c.entries), c.mem)
	return true
}

// GetOrLoad returns the value for key; on miss it loads via
// Options.Loader, coalescing concurrent loads for the same key.
func (c *cache[V]) GetOrLoad(ctx context.Context, key string) (V, error) {
	// fast path
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}

	// singleflight: exactly one real load for the key
	return c.sf.Do(ctx, key, func() (V, error) {
		// double-check after flight join
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, key)
		if err == nil {
			c.Set(key, v, SetOptions{})
		}
		return v, err
	})
}

// Len returns the number of resident entries.
func (c *cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the keys of all live entries. Entries past their TTL but
// not yet swept are skipped.
func (c *cache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	keys := make([]string, 0, len(c.entries))
	for key, e := range c.entries {
		if !e.expired(now) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Clear drops all entries and tag buckets and resets the counters.
func (c *cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Close stops the sweeper and clears all state. Safe to call multiple
// times; a closed cache answers every Get with a miss.
func (c *cache[V]) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.shutdown)
		<-c.done

		c.mu.Lock()
		c.clearLocked()
		c.mu.Unlock()
	})
	return nil
}

// ---- internals (mu held) ----

// removeEntryLocked is the shared removal path: it unlinks e from the
// store, the tag index, and the memory estimate in one critical
// section. Delete, invalidation, eviction, and the sweeper all go
// through here so the two maps never diverge.
func (c *cache[V]) removeEntryLocked(e *entry[V]) {
	delete(c.entries, e.key)
	c.detachTagsLocked(e)
	c.mem -= e.size
	if c.mem < 0 {
		c.mem = 0
	}
}

// evictLocked removes e and records it as a cache-initiated eviction.
func (c *cache[V]) evictLocked(e *entry[V], reason EvictReason) {
	c.removeEntryLocked(e)
	c.stats.evicts.Add(1)
	c.opt.Metrics.Evict(reason)
	if cb := c.opt.OnEvict; cb != nil {
		// Called under the lock; callbacks must not call back into the cache.
		cb(e.key, e.val, reason)
	}
}

func (c *cache[V]) clearLocked() {
	c.entries = make(map[string]*entry[V])
	c.tags = make(map[string]map[string]struct{})
	c.mem = 0
	c.stats.reset()
	c.opt.Metrics.Size(0, 0)
}

// now returns the current time in UnixNano from the configured clock.
func (c *cache[V]) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// dedupTags drops duplicates and empty strings, preserving first-seen
// order so attach/detach walk the same list.
func dedupTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0:0]
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
