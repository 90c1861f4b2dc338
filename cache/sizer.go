package cache

import "encoding/json"

// Footprint heuristic constants. The estimate is deliberately rough:
// its only job is to trip the memory-pressure threshold in the right
// ballpark, not to account bytes exactly.
const (
	// entryOverheadBytes is the fixed per-entry charge for map slot,
	// struct, and tag-index bookkeeping.
	entryOverheadBytes = 100
	// fallbackValueBytes is charged for a value the Sizer failed on.
	fallbackValueBytes = 512
)

// Sizer estimates the in-memory footprint of a cached value in bytes.
// Implementations may trade accuracy for speed; callers with large or
// unusual value types should supply their own.
type Sizer[V any] interface {
	SizeOf(v V) (int64, error)
}

// JSONSizer estimates a value's footprint as twice the length of its
// JSON encoding, a pessimistic stand-in for in-memory string width.
// It is the default Sizer.
type JSONSizer[V any] struct{}

// SizeOf implements Sizer.
func (JSONSizer[V]) SizeOf(v V) (int64, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return int64(2 * len(b)), nil
}

// SizerFunc adapts a plain function to the Sizer interface.
type SizerFunc[V any] func(v V) (int64, error)

// SizeOf implements Sizer.
func (f SizerFunc[V]) SizeOf(v V) (int64, error) { return f(v) }

var _ Sizer[any] = JSONSizer[any]{}

// sizeOf composes the full per-entry estimate:
//
//	2*len(key) + valueBytes + entryOverheadBytes
//
// Estimator errors and panics degrade to fallbackValueBytes so Set
// always proceeds; the failure is logged, never propagated.
func (c *cache[V]) sizeOf(key string, v V) int64 {
	return 2*int64(len(key)) + c.valueBytes(key, v) + entryOverheadBytes
}

func (c *cache[V]) valueBytes(key string, v V) (n int64) {
	defer func() {
		if r := recover(); r != nil {
			c.opt.Logger.Warn("cache: sizer panicked, using fallback estimate",
				"key", key, "panic", r)
			n = fallbackValueBytes
		}
	}()
	n, err := c.opt.Sizer.SizeOf(v)
	if err != nil || n < 0 {
		c.opt.Logger.Debug("cache: sizer failed, using fallback estimate",
			"key", key, "err", err)
		n = fallbackValueBytes
	}
	return n
}
