// Package policy implements the eviction scoring strategies used by the
// cache. A strategy ranks live entries; entries with the lowest scores
// are evicted first. The two built-in strategies are not interchangeable:
// each one backs a different pressure trigger (memory vs. entry count).
package policy

import "time"

// EntryInfo is the read-only view of a cache entry a strategy scores.
// Timestamps are Unix milliseconds from the cache's clock so strategies
// stay deterministic under a fake clock in tests.
type EntryInfo struct {
	Hits            int64
	CreatedAtMillis int64
}

// Strategy assigns an eviction score to an entry. Lower scores are
// evicted first. Implementations must be pure functions of their inputs.
type Strategy interface {
	Score(e EntryInfo, nowMillis int64) float64
}

// ValuePerAge scores entries by hits per minute of age:
//
//	score = hits / max(1, ageMinutes)
//
// Entries that earned few hits per unit of age score lowest and are
// evicted first. Entries younger than one minute are scored as if one
// minute old so a brand-new entry is not unevictable just for being new.
// Used for the memory-pressure trigger.
type ValuePerAge struct{}

// Score implements Strategy.
func (ValuePerAge) Score(e EntryInfo, nowMillis int64) float64 {
	ageMinutes := float64(nowMillis-e.CreatedAtMillis) / float64(time.Minute/time.Millisecond)
	if ageMinutes < 1 {
		ageMinutes = 1
	}
	return float64(e.Hits) / ageMinutes
}

// DefaultHitCreditMillis is the per-hit recency credit used when a
// Recency strategy does not set one: one second per hit.
const DefaultHitCreditMillis = int64(time.Second / time.Millisecond)

// Recency scores entries by creation time plus a fixed credit per hit:
//
//	score = createdAtMillis + hits*HitCreditMillis
//
// Each hit extends an entry's effective recency by HitCreditMillis; with
// the default credit a hit is worth exactly one second of freshness.
// The lowest score is the effectively oldest, least-hit entry.
// Used for the count-pressure trigger.
type Recency struct {
	// HitCreditMillis is the recency credit per hit in milliseconds.
	// Non-positive values fall back to DefaultHitCreditMillis.
	HitCreditMillis int64
}

// Score implements Strategy.
func (r Recency) Score(e EntryInfo, _ int64) float64 {
	credit := r.HitCreditMillis
	if credit <= 0 {
		credit = DefaultHitCreditMillis
	}
	return float64(e.CreatedAtMillis + e.Hits*credit)
}
