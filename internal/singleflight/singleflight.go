// Package singleflight coalesces concurrent calls for the same key so
// the supplied function runs at most once; other callers share the
// leader's result.
package singleflight

import (
	"context"
	"sync"
)

// Group tracks in-flight calls per key.
//
// Concurrency notes:
//   - The first caller for a key becomes the leader and runs fn.
//   - Followers wait on the call's done channel. Publishing (val, err)
//     happens-before close(done), so reads after <-done observe the
//     final values.
//   - A follower's ctx cancellation unblocks only that follower; the
//     leader's fn keeps running. Thread ctx into fn if the underlying
//     work must stop early.
type Group[K comparable, V any] struct {
	mu       sync.Mutex
	inflight map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed once val/err are published
	val  V
	err  error
}

// Do runs fn once for key among concurrent callers; everyone gets the
// shared result. Followers whose ctx is cancelled return ctx.Err().
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.inflight == nil {
		g.inflight = make(map[K]*call[V])
	}
	if c, ok := g.inflight[key]; ok {
		// Follower: wait for the leader, respecting ctx.
		done := c.done
		g.mu.Unlock()

		select {
		case <-done:
			return c.val, c.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	// Leader for this key.
	c := &call[V]{done: make(chan struct{})}
	g.inflight[key] = c
	g.mu.Unlock()

	// Run fn outside the lock, publish, wake followers.
	c.val, c.err = fn()
	close(c.done)

	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()

	return c.val, c.err
}
