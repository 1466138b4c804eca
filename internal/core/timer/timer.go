package timer

import "time"

// Timer is a one-shot countdown driven by the owning loop's Update calls.
// It has no goroutine of its own; the callback runs inside Update.
type Timer struct {
	remaining time.Duration
	running   bool
	callback  func()
}

// New creates a stopped timer that invokes cb when it expires.
func New(cb func()) *Timer {
	return &Timer{callback: cb}
}

// Start arms the timer. A running timer is re-armed with the new delay.
func (t *Timer) Start(delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	t.remaining = delay
	t.running = true
}

// Stop cancels the pending callback. Safe to call repeatedly.
func (t *Timer) Stop() {
	t.running = false
	t.remaining = 0
}

// Running reports whether a callback is pending.
func (t *Timer) Running() bool { return t.running }

// Remaining returns the time left until the callback fires (0 when stopped).
func (t *Timer) Remaining() time.Duration {
	if !t.running {
		return 0
	}
	return t.remaining
}

// SetRemaining changes the time left without restarting the countdown.
// Ignored while stopped.
func (t *Timer) SetRemaining(d time.Duration) {
	if !t.running {
		return
	}
	if d < 0 {
		d = 0
	}
	t.remaining = d
}

// Update advances the countdown and fires the callback once it reaches zero.
// The timer is stopped before the callback runs, so the callback may Start it again.
func (t *Timer) Update(dt time.Duration) {
	if !t.running {
		return
	}
	t.remaining -= dt
	if t.remaining > 0 {
		return
	}
	t.running = false
	t.remaining = 0
	if t.callback != nil {
		t.callback()
	}
}
