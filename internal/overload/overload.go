package overload

import (
	"sync"
	"time"
)

// retention bounds how long timestamps are kept, independent of the queried window.
const retention = 5 * time.Minute

var defaultTracker Tracker

// RecordAccepted records a request admitted by the rate limiter.
func RecordAccepted() {
	defaultTracker.RecordAccepted()
}

// RecordDenial records a rate-limit denial (429). Call from middleware when returning 429.
func RecordDenial() {
	defaultTracker.RecordDenial()
}

// RequestCount returns the number of requests (accepted + denied) within the given window.
func RequestCount(window time.Duration) int {
	return defaultTracker.RequestCount(window)
}

// DenialCount returns the number of denials within the given window.
func DenialCount(window time.Duration) int {
	return defaultTracker.DenialCount(window)
}

// Overloaded reports whether requests in window exceed thresholdPct of the
// limiter's capacity for that window (rps * window seconds).
func Overloaded(window time.Duration, rps, thresholdPct int) bool {
	if rps <= 0 || thresholdPct <= 0 || window <= 0 {
		return false
	}
	threshold := float64(rps) * window.Seconds() * float64(thresholdPct) / 100
	return float64(RequestCount(window)) > threshold
}

// Reset clears all recorded data. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker maintains sliding windows of accepted and denied request timestamps.
type Tracker struct {
	mu            sync.Mutex
	acceptedTimes []time.Time
	deniedTimes   []time.Time
}

// RecordAccepted records an accepted request at the current time.
func (t *Tracker) RecordAccepted() {
	t.record(&t.acceptedTimes)
}

// RecordDenial records a denied request at the current time.
func (t *Tracker) RecordDenial() {
	t.record(&t.deniedTimes)
}

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// RequestCount returns accepted + denied within the window ending now.
func (t *Tracker) RequestCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	return countInWindow(t.acceptedTimes, cutoff) + countInWindow(t.deniedTimes, cutoff)
}

// DenialCount returns denials within the window ending now.
func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countInWindow(t.deniedTimes, time.Now().Add(-window))
}

// Reset clears all recorded timestamps.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acceptedTimes = nil
	t.deniedTimes = nil
}

func countInWindow(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than retention. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.acceptedTimes)
	prune(&t.deniedTimes)
}
