package cache

import "context"

// WarmSource is the collaborator a cache can be pre-seeded from: a
// lookup service, a query layer, anything that can list its currently
// active records keyed by cache key.
type WarmSource[V any] interface {
	ListActive(ctx context.Context) (map[string]V, error)
}

// WarmSourceFunc adapts a plain function to the WarmSource interface.
type WarmSourceFunc[V any] func(ctx context.Context) (map[string]V, error)

// ListActive implements WarmSource.
func (f WarmSourceFunc[V]) ListActive(ctx context.Context) (map[string]V, error) {
	return f(ctx)
}

// WarmUp seeds the cache with every record the source lists, applying
// opts (TTL, tags, priority) uniformly. It returns how many records
// were seeded. Source failures are logged and returned to the caller,
// but the cache keeps working either way — a failed warm-up just means
// a cold start.
func (c *cache[V]) WarmUp(ctx context.Context, src WarmSource[V], opts SetOptions) (int, error) {
	if c.closed.Load() {
		return 0, nil
	}

	records, err := src.ListActive(ctx)
	if err != nil {
		c.opt.Logger.Warn("cache: warm-up source failed", "err", err)
		return 0, err
	}

	seeded := 0
	for key, v := range records {
		if err := ctx.Err(); err != nil {
			c.opt.Logger.Warn("cache: warm-up aborted",
				"seeded", seeded, "err", err)
			return seeded, err
		}
		c.Set(key, v, opts)
		seeded++
	}
	c.opt.Logger.Debug("cache: warm-up complete", "seeded", seeded)
	return seeded, nil
}
