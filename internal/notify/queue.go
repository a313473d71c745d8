package notify

import (
	"context"
	"sync"

	"github.com/roach88/ledgerguard/internal/domain"
)

// job is one pending dispatch.
type job struct {
	ctx     context.Context
	trigger domain.Trigger
	invoice *domain.Invoice
}

// jobQueue is an unbounded FIFO with a coalescing wake-up signal.
//
// Thread-safety: Enqueue may be called from any goroutine; TryDequeue
// from the single worker.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []job
	signal chan struct{}
	closed bool
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		// Buffer of 1 coalesces wake-ups from concurrent producers.
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends j. Returns false once the queue is closed.
func (q *jobQueue) Enqueue(j job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.jobs = append(q.jobs, j)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the front job without blocking.
func (q *jobQueue) TryDequeue() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return job{}, false
	}
	j := q.jobs[0]
	// Release the invoice pointer held by the backing array.
	q.jobs[0] = job{}
	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}
	return j, true
}

// Wait returns the wake-up channel. It is closed by Close.
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Drained reports whether the queue is closed and empty.
func (q *jobQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.jobs) == 0
}

// Close stops new jobs and wakes the worker.
func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
