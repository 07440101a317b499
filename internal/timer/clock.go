// Package timer provides a drift-corrected one-second countdown on top of a
// pluggable clock.
package timer

import "time"

// Handle cancels a scheduled callback.
type Handle interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped a pending callback.
	Stop() bool
}

// Clock is the source of time and scheduling for a Countdown.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Handle
}

// RealClock schedules on the runtime timer. Times returned by Now carry a
// monotonic reading, so elapsed computations ignore wall-clock adjustments.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Handle {
	return time.AfterFunc(d, f)
}
