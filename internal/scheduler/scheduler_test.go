package scheduler

import (
	"testing"
	"time"
)

// fakeEngine runs queued fake microtasks on RunMicrotasks and lets tests interleave
// "microtask work" with the drain discipline without a real JS engine.
type fakeEngine struct {
	pending []func()
}

func (f *fakeEngine) RunMicrotasks() {
	for len(f.pending) > 0 {
		job := f.pending[0]
		f.pending = f.pending[1:]
		job()
	}
}

func (f *fakeEngine) queueMicrotask(fn func()) {
	f.pending = append(f.pending, fn)
}

// TestSetTimeoutInsertionOrder covers the invariant from §8: two timers
// with identical (zero) delay fire in the order they were scheduled.
func TestSetTimeoutInsertionOrder(t *testing.T) {
	eng := &fakeEngine{}
	s := New(eng)

	var order []string
	s.SetTimer(0, false, true, func() { order = append(order, "f") })
	s.SetTimer(0, false, true, func() { order = append(order, "g") })

	time.Sleep(time.Millisecond)
	s.Tick()

	if len(order) != 2 || order[0] != "f" || order[1] != "g" {
		t.Fatalf("order = %v, want [f g]", order)
	}
}

// TestMicrotaskBeforeNextMacrotask covers scenario 2 from §8: a
// microtask queued synchronously runs before a same-delay timer fires in
// a later tick.
func TestMicrotaskBeforeNextMacrotask(t *testing.T) {
	eng := &fakeEngine{}
	s := New(eng)

	var order []string
	s.SetTimer(0, false, true, func() { order = append(order, "T") })
	eng.queueMicrotask(func() { order = append(order, "M") })

	// Synchronous script execution ends; the host drains the turn once
	// before entering the timer phase of the loop.
	s.drainTurn()

	time.Sleep(time.Millisecond)
	s.Tick()

	if len(order) != 2 || order[0] != "M" || order[1] != "T" {
		t.Fatalf("order = %v, want [M T]", order)
	}
}

// TestNextTickReentrancy covers §5b: a microtask that queues a next-tick
// causes next-tick to drain again within the same turn.
func TestNextTickReentrancy(t *testing.T) {
	eng := &fakeEngine{}
	s := New(eng)

	var order []string
	s.NextTick(func() {
		order = append(order, "tick1")
		eng.queueMicrotask(func() {
			order = append(order, "micro")
			s.NextTick(func() { order = append(order, "tick2") })
		})
	})

	s.drainTurn()

	want := []string{"tick1", "micro", "tick2"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

// TestClearTimerPreventsFire covers the handle/close invariant: a cleared
// timer never invokes its callback.
func TestClearTimerPreventsFire(t *testing.T) {
	eng := &fakeEngine{}
	s := New(eng)

	fired := false
	id := s.SetTimer(0, false, true, func() { fired = true })
	s.ClearTimer(id)

	time.Sleep(time.Millisecond)
	s.Tick()

	if fired {
		t.Fatal("cleared timer fired")
	}
}

// TestHasPendingReflectsRefdHandles ensures a process with only an unref'd
// timer is considered able to exit.
func TestHasPendingReflectsRefdHandles(t *testing.T) {
	eng := &fakeEngine{}
	s := New(eng)

	s.SetTimer(time.Hour, false, false, func() {})
	if s.HasPending() {
		t.Fatal("unref'd timer should not keep the loop alive")
	}

	s.AddRefdHandle()
	if !s.HasPending() {
		t.Fatal("ref'd handle should keep the loop alive")
	}
}

// TestIntervalReschedules checks that an interval timer keeps firing and
// a later ClearTimer stops it.
func TestIntervalReschedules(t *testing.T) {
	eng := &fakeEngine{}
	s := New(eng)

	count := 0
	var id int
	id = s.SetTimer(time.Millisecond, true, true, func() {
		count++
		if count == 3 {
			s.ClearTimer(id)
		}
	})
	_ = id

	deadline := time.Now().Add(200 * time.Millisecond)
	for count < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
		s.Tick()
	}

	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}
