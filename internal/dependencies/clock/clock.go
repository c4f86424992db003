package clock

import "time"

// Timer is a cancellable scheduled callback
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the timer
	// was stopped before its callback ran.
	Stop() bool
}

// Clock provides time and timer operations that can be mocked for testing.
// Debounce and probe timers go through AfterFunc so tests can advance
// virtual time instead of sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules f to run after d on its own goroutine
func (c *RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return &realTimer{t: time.AfterFunc(d, f)}
}

type realTimer struct {
	t *time.Timer
}

func (rt *realTimer) Stop() bool {
	return rt.t.Stop()
}
