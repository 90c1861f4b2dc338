package cache

import "time"

// entry is the internal record for one cached value. It is owned by the
// cache and only touched under the cache lock.
type entry[V any] struct {
	key string
	val V

	// Creation time in UnixNano from the cache clock. Re-Setting a key
	// builds a fresh entry, so created never moves forward in place.
	created int64

	// Lifetime relative to created. Always positive after Set applies
	// the default.
	ttl time.Duration

	// hits counts Get hits since creation; feeds both eviction scores.
	hits int64

	// tags this entry is a member of in the tag index, deduplicated.
	tags []string

	priority Priority

	// size is the footprint estimate computed once at Set time so the
	// cache-wide estimate is O(1) to maintain.
	size int64
}

// expired reports whether the entry is past its TTL at now (UnixNano).
// The boundary is strict: an entry aged exactly ttl is still live.
func (e *entry[V]) expired(now int64) bool {
	return now-e.created > int64(e.ttl)
}
