package cache

import "time"

// The sweeper is a coarse safety net: it keeps entries that are never
// read again from lingering past their TTL. The precise expiry boundary
// is the lazy check in Get.

// sweep runs until Close, scanning for expired entries every
// SweepInterval.
func (c *cache[V]) sweep() {
	defer close(c.done)

	ticker := time.NewTicker(c.opt.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired performs one sweep cycle under the same lock as
// foreground calls.
func (c *cache[V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired []*entry[V]
	for _, e := range c.entries {
		if e.expired(now) {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		c.expireOneLocked(e)
	}
	if len(expired) > 0 {
		c.opt.Metrics.Size(len(c.entries), c.mem)
	}
}

// expireOneLocked evicts a single expired entry, isolating failures:
// a panic (e.g. from a misbehaving OnEvict callback) is logged per
// entry and never aborts the rest of the sweep.
func (c *cache[V]) expireOneLocked(e *entry[V]) {
	defer func() {
		if r := recover(); r != nil {
			c.opt.Logger.Error("cache: sweep failed for entry",
				"key", e.key, "panic", r)
		}
	}()
	c.evictLocked(e, EvictTTL)
}
