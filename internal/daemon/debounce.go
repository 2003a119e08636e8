package daemon

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of triggers into one call. The first Trigger
// of a quiet period schedules fn after window; further triggers before it
// fires are absorbed and do not push the deadline back.
type Debouncer struct {
	window time.Duration
	fn     func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer calling fn at most once per window.
func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	return &Debouncer{window: window, fn: fn}
}

// Trigger schedules fn unless a call is already pending.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || d.timer != nil {
		return
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels a pending call and ignores future triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}
