package cache

import "github.com/motorline/tagcache/internal/util"

// counters are the monotonically increasing hit/miss/eviction counters.
// Hits and misses are touched on every Get, so each lives on its own
// cache line to avoid false sharing between concurrent readers.
type counters struct {
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicInt64
}

// reset zeroes all counters. Only Clear (and Close) do this.
func (s *counters) reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.evicts.Store(0)
}

// Stats is a point-in-time snapshot of cache state and counters.
type Stats struct {
	// Entries is the current number of resident entries.
	Entries int
	// Hits, Misses and Evictions are cumulative since construction or
	// the last Clear. Evictions counts every removal initiated by the
	// cache itself (TTL expiry, memory pressure, capacity), not
	// explicit Deletes or tag invalidation.
	Hits      int64
	Misses    int64
	Evictions int64
	// HitRate is Hits/(Hits+Misses), 0 when there was no traffic.
	HitRate float64
	// MemoryBytes is the heuristic usage estimate (see Sizer).
	MemoryBytes int64
}

// Stats returns a snapshot of the counters and current size.
func (c *cache[V]) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	mem := c.mem
	c.mu.RUnlock()

	hits := c.stats.hits.Load()
	misses := c.stats.misses.Load()
	s := Stats{
		Entries:     entries,
		Hits:        hits,
		Misses:      misses,
		Evictions:   c.stats.evicts.Load(),
		MemoryBytes: mem,
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}
