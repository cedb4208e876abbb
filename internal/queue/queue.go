// Package queue implements the ordered, at-least-once work queue that feeds
// the execution worker pool. Jobs are claimed by exactly one worker at a
// time, and a job may be removed only while it has not yet been claimed.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/solroute/swapd/internal/domain"
)

// Queue is a bounded FIFO of order jobs. Enqueue and Remove race against
// worker claims; the pending map is the single source of truth for whether a
// job is still removable.
type Queue struct {
	mu      sync.Mutex
	ids     chan string
	pending map[string]domain.Job
	closed  bool
	logger  *slog.Logger
}

// New creates a Queue holding at most capacity unclaimed jobs.
func New(capacity int, logger *slog.Logger) *Queue {
	return &Queue{
		ids:     make(chan string, capacity),
		pending: make(map[string]domain.Job),
		logger:  logger.With(slog.String("component", "queue")),
	}
}

// Enqueue adds a job in FIFO position. It returns domain.ErrQueueFull when
// the queue is at capacity.
func (q *Queue) Enqueue(job domain.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("queue: enqueue %s: queue closed", job.OrderID)
	}
	if _, dup := q.pending[job.OrderID]; dup {
		return fmt.Errorf("queue: enqueue %s: job already queued", job.OrderID)
	}

	select {
	case q.ids <- job.OrderID:
		q.pending[job.OrderID] = job
		return nil
	default:
		return fmt.Errorf("queue: enqueue %s: %w", job.OrderID, domain.ErrQueueFull)
	}
}

// Dequeue blocks until a job is available and claims it for the caller.
// Claiming deletes the job from the pending set atomically, so a concurrent
// Remove for the same job observes it as already claimed. Jobs removed
// before their turn are skipped silently.
func (q *Queue) Dequeue(ctx context.Context) (domain.Job, error) {
	for {
		select {
		case <-ctx.Done():
			return domain.Job{}, ctx.Err()
		case id, ok := <-q.ids:
			if !ok {
				return domain.Job{}, fmt.Errorf("queue: dequeue: queue closed")
			}
			q.mu.Lock()
			job, live := q.pending[id]
			if live {
				delete(q.pending, id)
			}
			q.mu.Unlock()
			if live {
				return job, nil
			}
			// Removed before claim; take the next job.
		}
	}
}

// Remove withdraws a not-yet-claimed job. It returns domain.ErrJobClaimed
// when the job has already been handed to a worker (or never existed), in
// which case the caller must not treat the order as cancellable here.
func (q *Queue) Remove(orderID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[orderID]; !ok {
		return fmt.Errorf("queue: remove %s: %w", orderID, domain.ErrJobClaimed)
	}
	delete(q.pending, orderID)
	q.logger.Info("job removed before claim", slog.String("order_id", orderID))
	return nil
}

// Len returns the number of unclaimed jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops the queue. Blocked Dequeue calls return after draining.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ids)
	}
}
