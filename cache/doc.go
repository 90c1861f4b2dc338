// Package cache provides a generic in-process, multi-tag,
// TTL-bounded cache with memory/size-aware eviction, per-tag bulk
// invalidation, deterministic key derivation, optional singleflight
// loading, lightweight metrics hooks, and a background expiry sweeper.
//
// Design
//
//   - Storage: a key→entry map (the single source of truth) plus a
//     secondary tag→key-set index. Both are mutated in the same
//     critical section under one RWMutex, so a reader never observes a
//     tag bucket whose backing entry is gone, or the reverse. A single
//     lock rather than shards is deliberate: both eviction triggers
//     rank the global entry population, which per-shard state cannot do.
//
//   - TTL: every entry has a lifetime (per-call or DefaultTTL). Expiry
//     is lazy on Get — the precise boundary — with a ticker-driven
//     background sweep as the safety net for entries nobody reads
//     again. Sweep failures are isolated per entry and logged.
//
//   - Tags: entries may carry string tags; InvalidateByTag removes the
//     whole group in one pass and reports how many entries went. Empty
//     buckets are dropped eagerly.
//
//   - Eviction: two independent pressure triggers with pluggable
//     scoring strategies (see the policy package). Crossing the memory
//     threshold before an insert sheds the bottom quarter of entries by
//     hits-per-age; crossing MaxEntries after an insert trims the
//     effectively oldest entries by recency score until the count fits.
//
//   - Memory accounting: a documented heuristic, not exact bytes. Each
//     entry is charged 2*len(key) + Sizer estimate + fixed overhead,
//     computed once at Set time. The Sizer is pluggable; the JSON
//     default falls back to a fixed estimate when a value will not
//     serialize.
//
//   - Keys: GenerateKey("llm", "42", ctx) builds
//     namespace:identifier:fingerprint keys whose fingerprint is
//     order-independent with respect to the context map.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals;
//     NoopMetrics by default, Prometheus adapter in metrics/prom.
//
// Basic usage
//
//	c := cache.New[string](cache.Options[string]{MaxEntries: 10_000})
//	defer c.Close()
//
//	key := cache.GenerateKey("llm", "42", map[string]any{"model": "m1", "temp": 0.2})
//	c.Set(key, completion, cache.SetOptions{
//		TTL:  10 * time.Minute,
//		Tags: []string{"tenant:5", "llm"},
//	})
//	if v, ok := c.Get(key); ok {
//		_ = v
//	}
//
//	// A tenant changed: drop everything cached for it.
//	n := c.InvalidateByTag("tenant:5")
//	_ = n
//
// With a loader (singleflight)
//
//	c := cache.New[[]byte](cache.Options[[]byte]{
//		Loader: func(ctx context.Context, key string) ([]byte, error) {
//			return fetchFromDB(ctx, key)
//		},
//	})
//	v, err := c.GetOrLoad(ctx, key)
//
// Thread-safety & complexity
//
// All methods on Cache are safe for concurrent use. Get/Set/Delete are
// amortized O(1); eviction, invalidation, and the sweep are O(n) scans
// over resident entries. No operation performs I/O or blocks on
// anything but the cache lock.
package cache
