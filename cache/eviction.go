package cache

import (
	"sort"
	"time"

	"github.com/motorline/tagcache/policy"
)

// Two independent eviction triggers, each with its own scoring
// strategy; they are not interchangeable:
//
//   - memory pressure (pre-insert): the usage estimate crossed the
//     threshold, so the bottom quarter of entries by MemoryPolicy score
//     is shed in one pass;
//   - count pressure (post-insert): the entry count crossed MaxEntries,
//     so the lowest-scored entries by CountPolicy go until the count is
//     back at the ceiling.
//
// Both run under the write lock and remove through evictLocked, so the
// tag index stays consistent and every removal is counted.

type scored[V any] struct {
	e     *entry[V]
	score float64
}

// evictMemoryPressureLocked sheds the bottom 25% of entries (rounded
// down) by MemoryPolicy score. With fewer than four entries nothing is
// shed; the count ceiling still bounds growth.
func (c *cache[V]) evictMemoryPressureLocked() {
	victims := len(c.entries) / 4
	if victims == 0 {
		return
	}
	ranked := c.rankLocked(c.opt.MemoryPolicy, true)
	for _, s := range ranked[:victims] {
		c.evictLocked(s.e, EvictMemory)
	}
}

// evictCountPressureLocked trims the lowest-scored entries by
// CountPolicy until the count is back at or below MaxEntries.
func (c *cache[V]) evictCountPressureLocked() {
	over := len(c.entries) - c.opt.MaxEntries
	if over <= 0 {
		return
	}
	ranked := c.rankLocked(c.opt.CountPolicy, false)
	for _, s := range ranked[:over] {
		c.evictLocked(s.e, EvictCapacity)
	}
}

// rankLocked scores every resident entry with strat and sorts ascending
// (evict-first order). When priorityTieBreak is set, equal scores are
// ordered low priority first; the final key comparison keeps the order
// deterministic regardless of map iteration.
func (c *cache[V]) rankLocked(strat policy.Strategy, priorityTieBreak bool) []scored[V] {
	nowMillis := c.now() / int64(time.Millisecond)

	ranked := make([]scored[V], 0, len(c.entries))
	for _, e := range c.entries {
		info := policy.EntryInfo{
			Hits:            e.hits,
			CreatedAtMillis: e.created / int64(time.Millisecond),
		}
		ranked = append(ranked, scored[V]{e: e, score: strat.Score(info, nowMillis)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		if priorityTieBreak && ranked[i].e.priority != ranked[j].e.priority {
			return ranked[i].e.priority < ranked[j].e.priority
		}
		return ranked[i].e.key < ranked[j].e.key
	})
	return ranked
}
