package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met before deadline")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestArmFires(t *testing.T) {
	s := New()
	defer s.Close()

	var fired atomic.Int32
	s.Arm("al-1", 20*time.Millisecond, func() { fired.Add(1) })

	waitFor(t, time.Second, func() bool { return fired.Load() == 1 })
	if s.Armed("al-1") {
		t.Fatal("expected timer removed after firing")
	}
}

func TestRearmReplacesTimer(t *testing.T) {
	s := New()
	defer s.Close()

	var first, second atomic.Int32
	s.Arm("al-1", 30*time.Millisecond, func() { first.Add(1) })
	s.Arm("al-1", 30*time.Millisecond, func() { second.Add(1) })

	waitFor(t, time.Second, func() bool { return second.Load() == 1 })
	time.Sleep(50 * time.Millisecond)
	if first.Load() != 0 {
		t.Fatal("replaced timer must not fire")
	}
}

func TestRearmDuringFireKeepsNewTimer(t *testing.T) {
	s := New()
	defer s.Close()

	// Repeatedly let an immediate timer fire while re-arming the same
	// id with a long one. The stale callback must not evict the fresh
	// timer from the table.
	for i := 0; i < 500; i++ {
		s.Arm("al-1", 0, func() {})
		s.Arm("al-1", time.Hour, func() {})
		time.Sleep(time.Millisecond)
		if !s.Armed("al-1") {
			t.Fatalf("iteration %d: re-armed timer lost", i)
		}
		s.Cancel("al-1")
	}
	if s.Armed("al-1") {
		t.Fatal("expected timer removed after cancel")
	}
}

func TestCancelIdempotent(t *testing.T) {
	s := New()
	defer s.Close()

	var fired atomic.Int32
	s.Arm("al-1", 30*time.Millisecond, func() { fired.Add(1) })
	s.Cancel("al-1")
	s.Cancel("al-1")
	s.Cancel("unknown")

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("cancelled timer must not fire")
	}
	if s.Armed("al-1") {
		t.Fatal("expected timer removed")
	}
}

func TestCloseStopsEverything(t *testing.T) {
	s := New()

	var fired atomic.Int32
	for _, id := range []string{"al-1", "al-2", "al-3"} {
		s.Arm(id, 30*time.Millisecond, func() { fired.Add(1) })
	}
	s.Close()

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("expected no firings after close, got %d", fired.Load())
	}

	s.Arm("al-4", time.Millisecond, func() { fired.Add(1) })
	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("closed scheduler must reject new timers")
	}
}
