package game

import "container/heap"

// Scheduler runs delayed tasks on the engine tick, single-threaded. Tasks are
// keyed by the virtual tick they become due on and drain in (due, enqueue
// order) so same-deadline tasks stay FIFO-fair. Staggered marble vanishes and
// chain-reaction rechecks both run through here instead of recursing inside
// the operation that scheduled them.
//
// A task's guard is evaluated at execution time, not scheduling time: a task
// whose target marble has since been removed must observe that and no-op.
type Scheduler struct {
	tasks taskQueue
	now   int64
	seq   uint64
}

type task struct {
	due   int64
	seq   uint64
	guard func() bool
	run   func()
}

type taskQueue []*task

func (tq taskQueue) Len() int { return len(tq) }

func (tq taskQueue) Less(i, j int) bool {
	if tq[i].due != tq[j].due {
		return tq[i].due < tq[j].due
	}
	return tq[i].seq < tq[j].seq
}

func (tq taskQueue) Swap(i, j int) {
	tq[i], tq[j] = tq[j], tq[i]
}

func (tq *taskQueue) Push(x any) {
	*tq = append(*tq, x.(*task))
}

func (tq *taskQueue) Pop() any {
	old := *tq
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*tq = old[:n-1]
	return t
}

// NewScheduler creates an empty scheduler starting at tick 0.
func NewScheduler() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.tasks)
	return s
}

// After enqueues run to fire delay ticks from now. A nil guard always fires;
// otherwise the guard is checked when the task comes due and a false result
// drops the task silently. A delay <= 0 fires on the next Advance.
func (s *Scheduler) After(delay int64, guard func() bool, run func()) {
	if run == nil {
		return
	}
	if delay < 0 {
		delay = 0
	}
	s.seq++
	heap.Push(&s.tasks, &task{
		due:   s.now + delay,
		seq:   s.seq,
		guard: guard,
		run:   run,
	})
}

// Advance moves virtual time to now and runs every task due at or before it,
// in deadline order with FIFO tie-break. Tasks scheduled while draining land
// relative to the new time; one scheduled with zero delay from inside a task
// still waits for the next Advance, which keeps cascades one tick apart.
func (s *Scheduler) Advance(now int64) {
	s.now = now
	entrySeq := s.seq
	for s.tasks.Len() > 0 && s.tasks[0].due <= now && s.tasks[0].seq <= entrySeq {
		t := heap.Pop(&s.tasks).(*task)
		if t.guard != nil && !t.guard() {
			continue
		}
		t.run()
	}
}

// Now returns the scheduler's current virtual tick.
func (s *Scheduler) Now() int64 {
	return s.now
}

// Pending returns the number of queued tasks, due or not.
func (s *Scheduler) Pending() int {
	return s.tasks.Len()
}
