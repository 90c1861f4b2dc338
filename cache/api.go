package cache

import (
	"context"
	"time"
)

// Priority is advisory metadata attached to an entry at Set time.
// It only matters when memory-pressure eviction has to break a tie
// between equal scores: lower-priority entries are evicted first.
// The zero value is PriorityLow.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// SetOptions carries the per-call knobs of Set.
// The zero value means: default TTL, no tags, low priority.
type SetOptions struct {
	// TTL is the entry lifetime. Non-positive => Options.DefaultTTL.
	TTL time.Duration
	// Tags label the entry for bulk invalidation. Duplicates and empty
	// strings are dropped.
	Tags []string
	// Priority is the eviction tie-break class (see Priority).
	Priority Priority
}

// Cache is an in-process, multi-tag, TTL-bounded key/value cache.
// All methods are safe for concurrent use by multiple goroutines.
//
// Get/Set/Delete are amortized O(1); eviction and the background sweep
// are O(n) scans over the resident entries. No method performs I/O.
type Cache[V any] interface {
	// Get returns the value for key and a presence flag. A miss is a
	// normal return value, never an error. An entry past its TTL is
	// removed on access (lazy expiry) and reported as a miss; a hit
	// increments the entry's hit count.
	Get(key string) (V, bool)

	// Set inserts or replaces the entry at key. Replacing a live entry
	// detaches its old tag memberships first. Memory-pressure eviction
	// runs before the insert when the usage estimate is over the
	// threshold; count-pressure eviction runs after the insert when the
	// entry count is over MaxEntries.
	Set(key string, value V, opts SetOptions)

	// Delete removes the entry and its tag memberships.
	// Returns whether the entry was present.
	Delete(key string) bool

	// InvalidateByTag removes every entry carrying tag and returns how
	// many were removed. The tag's bucket is dropped afterwards.
	InvalidateByTag(tag string) int

	// InvalidateByTags invalidates each tag in turn and returns the
	// total number of entries removed. An entry carrying several of the
	// tags is removed (and counted) only once.
	InvalidateByTags(tags []string) int

	// GetOrLoad returns the value for key, loading it via Options.Loader
	// on miss. Concurrent loads for the same key are coalesced
	// (singleflight). If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, key string) (V, error)

	// WarmUp bulk-seeds the cache from src using opts for every record.
	// Source failures are logged and returned; they never leave the
	// cache in a broken state.
	WarmUp(ctx context.Context, src WarmSource[V], opts SetOptions) (int, error)

	// Len returns the number of resident entries.
	Len() int

	// Keys returns the keys of all live (unexpired) entries.
	Keys() []string

	// Stats returns a point-in-time snapshot of the counters.
	Stats() Stats

	// Clear drops all entries and tag buckets and resets the counters.
	Clear()

	// Close stops the background sweeper and clears all state. It is
	// idempotent; operations after Close report misses rather than
	// erroring.
	Close() error
}
