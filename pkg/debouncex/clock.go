package debouncex

import "time"

// Clock is the time source and timer service of a Debouncer.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the cancel handle of a scheduled callback. Stop reports whether the
// call prevented the callback from running; stopping twice is harmless.
type Timer interface {
	Stop() bool
}

type runtimeClock struct{}

func (runtimeClock) Now() time.Time { return time.Now() }

func (runtimeClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns the Clock backed by the Go runtime timers.
func RealClock() Clock {
	return runtimeClock{}
}
