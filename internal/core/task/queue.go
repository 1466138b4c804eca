package task

import "sync"

// Queue is the task queue of one execution context (a region loop).
// Any goroutine may Enqueue; only the owning loop calls Run.
// Tasks run in FIFO order. Tasks enqueued while Run is draining are
// left for the next Run, so a task chain can never starve the tick.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	spare   []func()
}

func NewQueue() *Queue {
	return &Queue{
		pending: make([]func(), 0, 64),
		spare:   make([]func(), 0, 64),
	}
}

// Enqueue schedules fn for the owning context's next Run.
func (q *Queue) Enqueue(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

// Len returns the number of tasks waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run executes the tasks that were queued when it was called and returns
// how many ran.
func (q *Queue) Run() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = q.spare[:0]
	q.mu.Unlock()

	for i, fn := range batch {
		fn()
		batch[i] = nil
	}

	q.mu.Lock()
	q.spare = batch[:0]
	q.mu.Unlock()
	return len(batch)
}
