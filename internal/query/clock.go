package query

import "time"

// Timer is the subset of [time.Timer] the cache needs for idle eviction.
type Timer interface {
	// Reset re-arms the timer for d. Reports whether the timer was still active.
	Reset(d time.Duration) bool

	// Stop disarms the timer. Reports whether the timer was still active.
	Stop() bool
}

// Clock creates eviction timers. The production implementation is
// [SystemClock]; tests inject a fake so eviction can be asserted without
// wall-clock sleeps.
type Clock interface {
	// AfterFunc arranges for fn to run on its own goroutine after d.
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemClock is a [Clock] backed by the real [time.AfterFunc].
type SystemClock struct{}

// AfterFunc implements [Clock].
func (SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
