package daemon

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 20; i++ {
		d.Trigger()
	}
	if !d.Pending() {
		t.Fatal("expected a pending call")
	}
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
	if d.Pending() {
		t.Error("still pending after firing")
	}

	d.Trigger()
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2 after a second burst", n)
	}
}

func TestDebouncerDoesNotExtendWindow(t *testing.T) {
	fired := make(chan time.Time, 4)
	d := NewDebouncer(100*time.Millisecond, func() { fired <- time.Now() })

	start := time.Now()
	d.Trigger()
	// Keep triggering past the original deadline.
	for i := 0; i < 6; i++ {
		time.Sleep(30 * time.Millisecond)
		d.Trigger()
	}

	select {
	case at := <-fired:
		if elapsed := at.Sub(start); elapsed > 170*time.Millisecond {
			t.Errorf("first call after %s, want about 100ms", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })
	d.Trigger()
	d.Stop()
	d.Trigger()
	time.Sleep(100 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("calls = %d after Stop, want 0", n)
	}
}
