package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/motorline/tagcache/policy"
)

// EvictReason explains why an entry was removed by the cache itself.
type EvictReason int

const (
	// EvictTTL — expired by TTL (lazily on access, or by the sweeper).
	EvictTTL EvictReason = iota
	// EvictMemory — removed by memory-pressure eviction ahead of an insert.
	EvictMemory
	// EvictCapacity — removed to bring the entry count back under MaxEntries.
	EvictCapacity
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int, bytes int64)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Defaults applied by New when the corresponding Options field is zero.
const (
	// DefaultTTL is the entry lifetime used when neither Options nor
	// SetOptions specify one.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxEntries is the entry-count ceiling enforced after inserts.
	DefaultMaxEntries = 1000
	// DefaultMemoryThresholdBytes is the estimated-usage level that
	// triggers memory-pressure eviction before inserts (50 MiB).
	DefaultMemoryThresholdBytes = 50 << 20
	// DefaultSweepInterval is how often the background sweeper scans
	// for expired entries.
	DefaultSweepInterval = time.Minute
)

// Options configures the cache behavior. Zero values are safe;
// sane defaults are applied in New():
//   - DefaultTTL <= 0            => 5m
//   - MaxEntries <= 0            => 1000
//   - MemoryThresholdBytes <= 0  => 50 MiB
//   - SweepInterval <= 0         => 1m
//   - nil Sizer                  => JSONSizer
//   - nil Metrics                => NoopMetrics
//   - nil Logger                 => slog.Default()
//   - nil policies               => policy.ValuePerAge / policy.Recency
type Options[V any] struct {
	// DefaultTTL applies to Set calls that do not carry their own TTL.
	DefaultTTL time.Duration

	// MaxEntries is the entry-count ceiling. When an insert pushes the
	// count above it, count-pressure eviction trims back to the ceiling.
	MaxEntries int

	// MemoryThresholdBytes is the estimated-memory level that triggers
	// memory-pressure eviction before an insert. The estimate is a
	// documented heuristic, not byte-accurate accounting.
	MemoryThresholdBytes int64

	// SweepInterval is the background expiry sweep period.
	SweepInterval time.Duration

	// Sizer estimates the footprint of stored values; nil => JSONSizer.
	// Estimator failures degrade to a fixed fallback, never to an error.
	Sizer Sizer[V]

	// MemoryPolicy ranks entries for memory-pressure eviction.
	// Nil => policy.ValuePerAge (hits per minute of age).
	MemoryPolicy policy.Strategy

	// CountPolicy ranks entries for count-pressure eviction.
	// Nil => policy.Recency with HitRecencyCredit.
	CountPolicy policy.Strategy

	// HitRecencyCredit is the recency credit per hit used by the default
	// CountPolicy: each hit makes an entry look this much younger.
	// Non-positive => 1s.
	HitRecencyCredit time.Duration

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, key string) (V, error)

	// Observability
	// OnEvict is called for every cache-initiated removal, under the
	// cache lock; keep callbacks lightweight.
	OnEvict func(key string, v V, reason EvictReason)
	Metrics Metrics
	// Logger receives sweep and warm-up failures. Nil => slog.Default().
	Logger *slog.Logger

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}
