package game

import "testing"

// TestSchedulerDeadlineOrder verifies tasks run in due order regardless of
// enqueue order.
func TestSchedulerDeadlineOrder(t *testing.T) {
	s := NewScheduler()

	var order []int
	s.After(5, nil, func() { order = append(order, 5) })
	s.After(1, nil, func() { order = append(order, 1) })
	s.After(3, nil, func() { order = append(order, 3) })

	s.Advance(10)

	want := []int{1, 3, 5}
	if len(order) != len(want) {
		t.Fatalf("ran %d tasks, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("task %d ran as %d, want %d", i, order[i], want[i])
		}
	}
}

// TestSchedulerFIFOSameDeadline verifies same-deadline tasks run in enqueue
// order.
func TestSchedulerFIFOSameDeadline(t *testing.T) {
	s := NewScheduler()

	var order []string
	for _, name := range []string{"a", "b", "c", "d"} {
		n := name
		s.After(2, nil, func() { order = append(order, n) })
	}

	s.Advance(2)

	if got := len(order); got != 4 {
		t.Fatalf("ran %d tasks, want 4", got)
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if order[i] != want {
			t.Errorf("position %d ran %q, want %q", i, order[i], want)
		}
	}
}

// TestSchedulerGuardCheckedAtExecution verifies the liveness guard is
// evaluated when the task fires, not when it is scheduled.
func TestSchedulerGuardCheckedAtExecution(t *testing.T) {
	s := NewScheduler()

	alive := true
	ran := false
	s.After(3, func() bool { return alive }, func() { ran = true })

	// Target removed after scheduling but before the deadline.
	s.Advance(1)
	alive = false
	s.Advance(5)

	if ran {
		t.Errorf("guarded task ran after its target went inactive")
	}
	if s.Pending() != 0 {
		t.Errorf("dropped task still pending")
	}
}

// TestSchedulerNotDueYet verifies tasks stay queued until their deadline.
func TestSchedulerNotDueYet(t *testing.T) {
	s := NewScheduler()

	ran := false
	s.After(10, nil, func() { ran = true })

	s.Advance(9)
	if ran {
		t.Fatalf("task ran before its deadline")
	}
	if s.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", s.Pending())
	}

	s.Advance(10)
	if !ran {
		t.Errorf("task did not run at its deadline")
	}
}

// TestSchedulerCascadeWaitsOneTick verifies a task scheduled from inside a
// running task does not fire within the same drain, even with zero delay.
func TestSchedulerCascadeWaitsOneTick(t *testing.T) {
	s := NewScheduler()

	var fired []string
	s.After(1, nil, func() {
		fired = append(fired, "outer")
		s.After(0, nil, func() { fired = append(fired, "inner") })
	})

	s.Advance(1)
	if len(fired) != 1 || fired[0] != "outer" {
		t.Fatalf("same-tick drain ran %v, want only outer", fired)
	}

	s.Advance(2)
	if len(fired) != 2 || fired[1] != "inner" {
		t.Errorf("next drain ran %v, want inner appended", fired)
	}
}
