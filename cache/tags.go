package cache

// The tag index is a secondary map from tag to the set of keys carrying
// it. It is only ever mutated in the same critical section as the entry
// store: attach on insert, detach on the shared removal path. Empty
// buckets are deleted immediately, never left dangling.

// attachTagsLocked records e's membership in every one of its tags.
func (c *cache[V]) attachTagsLocked(e *entry[V]) {
	for _, t := range e.tags {
		bucket := c.tags[t]
		if bucket == nil {
			bucket = make(map[string]struct{})
			c.tags[t] = bucket
		}
		bucket[e.key] = struct{}{}
	}
}

// detachTagsLocked removes e from every bucket it is a member of and
// drops buckets that become empty.
func (c *cache[V]) detachTagsLocked(e *entry[V]) {
	for _, t := range e.tags {
		bucket := c.tags[t]
		if bucket == nil {
			continue
		}
		delete(bucket, e.key)
		if len(bucket) == 0 {
			delete(c.tags, t)
		}
	}
}

// InvalidateByTag removes every entry carrying tag.
func (c *cache[V]) InvalidateByTag(tag string) int {
	if c.closed.Load() {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.invalidateTagLocked(tag)
	if removed > 0 {
		c.opt.Metrics.Size(len(c.entries), c.mem)
	}
	return removed
}

// InvalidateByTags invalidates each tag within one critical section.
// A key tagged by several of the tags disappears from the other buckets
// when it is first removed, so it is only counted once.
func (c *cache[V]) InvalidateByTags(tags []string) int {
	if c.closed.Load() {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, t := range tags {
		total += c.invalidateTagLocked(t)
	}
	if total > 0 {
		c.opt.Metrics.Size(len(c.entries), c.mem)
	}
	return total
}

func (c *cache[V]) invalidateTagLocked(tag string) int {
	bucket, ok := c.tags[tag]
	if !ok {
		return 0
	}
	removed := 0
	for key := range bucket {
		// Absent keys are a no-op, not an error; the bucket itself
		// shrinks as removeEntryLocked detaches memberships.
		if e, ok := c.entries[key]; ok {
			c.removeEntryLocked(e)
			removed++
		}
	}
	delete(c.tags, tag)
	return removed
}
