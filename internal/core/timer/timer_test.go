package timer

import (
	"testing"
	"time"
)

func TestFiresOnceAtExpiry(t *testing.T) {
	fired := 0
	tm := New(func() { fired++ })
	tm.Start(250 * time.Millisecond)

	tm.Update(200 * time.Millisecond)
	if fired != 0 {
		t.Fatal("fired early")
	}
	if got := tm.Remaining(); got != 50*time.Millisecond {
		t.Fatalf("remaining = %v", got)
	}

	tm.Update(100 * time.Millisecond)
	tm.Update(100 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("fired %d times, want 1", fired)
	}
	if tm.Running() {
		t.Fatal("timer still running after firing")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	fired := 0
	tm := New(func() { fired++ })
	tm.Start(time.Second)
	tm.Stop()
	tm.Stop()
	tm.Update(2 * time.Second)
	if fired != 0 {
		t.Fatal("stopped timer fired")
	}
	if tm.Remaining() != 0 {
		t.Fatal("stopped timer reports remaining time")
	}
}

func TestSetRemainingExtendsWithoutRestart(t *testing.T) {
	fired := 0
	tm := New(func() { fired++ })
	tm.Start(time.Second)
	tm.Update(600 * time.Millisecond)

	tm.SetRemaining(tm.Remaining() + 500*time.Millisecond)
	if got := tm.Remaining(); got != 900*time.Millisecond {
		t.Fatalf("remaining = %v, want 900ms", got)
	}
	tm.Update(800 * time.Millisecond)
	if fired != 0 {
		t.Fatal("fired before extended deadline")
	}
	tm.Update(100 * time.Millisecond)
	if fired != 1 {
		t.Fatal("did not fire at extended deadline")
	}
}

func TestCallbackMayRestart(t *testing.T) {
	fired := 0
	var tm *Timer
	tm = New(func() {
		fired++
		if fired < 3 {
			tm.Start(10 * time.Millisecond)
		}
	})
	tm.Start(10 * time.Millisecond)
	for i := 0; i < 10; i++ {
		tm.Update(10 * time.Millisecond)
	}
	if fired != 3 {
		t.Fatalf("fired %d times, want 3", fired)
	}
}
