package sched

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Trigger is a single debounce timer. Arm schedules the handler for
// interval from now, replacing any earlier deadline; only the last Arm
// before expiry matters. The handler runs on the clock's timer
// goroutine, outside the Trigger's lock, so it may re-arm or stop the
// trigger itself.
type Trigger struct {
	clk      clock.Clock
	interval time.Duration
	fn       func()

	mu    sync.Mutex
	timer *clock.Timer
	armed bool
}

// New creates an idle trigger firing fn after interval of quiet.
func New(clk clock.Clock, interval time.Duration, fn func()) *Trigger {
	return &Trigger{clk: clk, interval: interval, fn: fn}
}

// Arm (re)schedules the trigger for interval from now. Last write wins.
func (t *Trigger) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	// A fresh timer per arm avoids reset-after-fire ambiguity.
	t.timer = t.clk.AfterFunc(t.interval, t.fire)
	t.armed = true
}

// Stop disarms the trigger. Idempotent, safe if never armed. A handler
// already started by the clock may still run; Stop only prevents
// future expiries.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.armed = false
}

// Armed reports whether an expiry is pending.
func (t *Trigger) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

func (t *Trigger) fire() {
	t.mu.Lock()
	if !t.armed {
		// Stopped between expiry and execution.
		t.mu.Unlock()
		return
	}
	t.armed = false
	t.timer = nil
	t.mu.Unlock()
	t.fn()
}
