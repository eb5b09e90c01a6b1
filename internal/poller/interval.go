package poller

import "time"

// Cadence constants shared by every link poller. The backoff factor and cap
// are fixed; only the base interval varies per link kind.
const (
	backoffFactor = 1.5
	maxInterval   = 5 * time.Minute

	// minSuggested floors backend cadence suggestions so a buggy backend
	// cannot drive clients into a hot poll loop.
	minSuggested = time.Second

	// emptyCycleThreshold is how many consecutive empty cycles are tolerated
	// before the interval starts growing. Debounces single quiet polls.
	emptyCycleThreshold = 3
)

// Interval owns the adaptive polling cadence for exactly one link.
//
// The cadence starts at a per-kind base interval and adapts to traffic:
// sustained empty cycles slow polling down multiplicatively (capped at
// [maxInterval]), fresh content snaps it back to the base, and an explicit
// backend suggestion overrides both.
//
// Interval is pure state with no I/O and no locking of its own; the owning
// [Poller] serializes all access.
type Interval struct {
	base    time.Duration
	current time.Duration
	empties int
}

// NewInterval creates an [Interval] starting at the given base cadence.
func NewInterval(base time.Duration) *Interval {
	return &Interval{
		base:    base,
		current: base,
	}
}

// Adjust folds the outcome of one completed poll cycle into the cadence.
//
// Precedence, highest first:
//  1. A positive backend suggestion is adopted directly, floored at
//     [minSuggested]. Nothing else changes, including the empty-cycle count.
//  2. New content resets the cadence to the base and zeroes the count.
//  3. An empty cycle increments the count; once the count reaches
//     [emptyCycleThreshold] the interval grows by [backoffFactor] per empty
//     cycle, capped at [maxInterval]. Below the threshold the interval is
//     left unchanged.
func (iv *Interval) Adjust(hasNewContent bool, suggested time.Duration) {
	switch {
	case suggested > 0:
		if suggested < minSuggested {
			suggested = minSuggested
		}
		iv.current = suggested
	case hasNewContent:
		iv.current = iv.base
		iv.empties = 0
	default:
		iv.empties++
		if iv.empties >= emptyCycleThreshold {
			next := time.Duration(float64(iv.current) * backoffFactor)
			if next > maxInterval {
				next = maxInterval
			}
			iv.current = next
		}
	}
}

// Reset unconditionally restores the base cadence and zeroes the empty-cycle
// count. Called when a poller starts.
func (iv *Interval) Reset() {
	iv.current = iv.base
	iv.empties = 0
}

// Current returns the delay to apply before the next cycle.
func (iv *Interval) Current() time.Duration {
	return iv.current
}

// EmptyCycles returns the number of consecutive cycles without content.
func (iv *Interval) EmptyCycles() int {
	return iv.empties
}
