package signaling

import "time"

// TimerHandle is a cancelable reference to a scheduled task.
type TimerHandle interface {
	// Cancel stops the task; reports whether it was still pending.
	Cancel() bool
}

// Scheduler runs a function after a delay. Tests substitute a manual-fire
// implementation so missed-call transitions need no real waits.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) TimerHandle
}

type timerScheduler struct{}

// NewScheduler returns the production scheduler backed by time.AfterFunc.
func NewScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(delay time.Duration, fn func()) TimerHandle {
	return &timerHandle{timer: time.AfterFunc(delay, fn)}
}

type timerHandle struct {
	timer *time.Timer
}

func (h *timerHandle) Cancel() bool {
	return h.timer.Stop()
}
