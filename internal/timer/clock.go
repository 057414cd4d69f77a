package timer

import "time"

// Clock abstracts time.Now so lifecycle tests can control the clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// CancelFunc cancels a scheduled callback. Returns false when the callback
// already fired.
type CancelFunc func() bool

// Scheduler abstracts delayed execution so retry tests run without real
// delays.
type Scheduler interface {
	After(d time.Duration, f func()) CancelFunc
}

type timerScheduler struct{}

func (timerScheduler) After(d time.Duration, f func()) CancelFunc {
	t := time.AfterFunc(d, f)
	return t.Stop
}

// SystemScheduler returns a Scheduler backed by time.AfterFunc.
func SystemScheduler() Scheduler { return timerScheduler{} }
