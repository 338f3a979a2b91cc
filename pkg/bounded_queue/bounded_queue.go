// Package bounded_queue provides the fixed-capacity FIFO that sits between
// pipeline stages. A full queue blocks its producers, which is the
// backpressure boundary of the benchmark.
package bounded_queue

import (
	"context"
	"time"

	"mq-pipeline-bench/pkg/common_errors"
	"mq-pipeline-bench/pkg/debug"
	"mq-pipeline-bench/pkg/utils/syncutils"

	"github.com/gammazero/deque"
	"golang.org/x/sync/semaphore"
)

type BoundedQueue[T any] struct {
	mu       syncutils.Mutex
	items    *deque.Deque[T]
	closed   bool
	capacity int

	// one slot per free position, one ready token per queued item
	slots *semaphore.Weighted
	ready chan struct{}
}

func NewBoundedQueue[T any](capacity int) *BoundedQueue[T] {
	debug.Assert(capacity > 0, "queue capacity should be positive")
	if capacity <= 0 {
		capacity = 1
	}
	return &BoundedQueue[T]{
		items:    deque.New[T](),
		capacity: capacity,
		slots:    semaphore.NewWeighted(int64(capacity)),
		ready:    make(chan struct{}, capacity),
	}
}

// Push appends v, blocking while the queue is full. It returns ctx.Err() if
// the context ends first and ErrQueueClosed after Close.
func (q *BoundedQueue[T]) Push(ctx context.Context, v T) error {
	if err := q.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	return q.enqueue(v)
}

func (q *BoundedQueue[T]) enqueue(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.slots.Release(1)
		return common_errors.ErrQueueClosed
	}
	q.items.PushBack(v)
	q.mu.Unlock()
	q.ready <- struct{}{}
	return nil
}

// Pop removes the head of the queue, waiting up to timeout for one to
// arrive. A non-positive timeout only takes what is already queued.
func (q *BoundedQueue[T]) Pop(timeout time.Duration) (T, bool) {
	select {
	case <-q.ready:
		return q.dequeue(), true
	default:
	}
	var zero T
	if timeout <= 0 {
		return zero, false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-q.ready:
		return q.dequeue(), true
	case <-timer.C:
		return zero, false
	}
}

// PopContext blocks until an item is available or ctx ends. An item that is
// already queued is returned even if ctx is done.
func (q *BoundedQueue[T]) PopContext(ctx context.Context) (T, error) {
	select {
	case <-q.ready:
		return q.dequeue(), nil
	default:
	}
	select {
	case <-q.ready:
		return q.dequeue(), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (q *BoundedQueue[T]) dequeue() T {
	q.mu.Lock()
	v := q.items.PopFront()
	q.mu.Unlock()
	q.slots.Release(1)
	return v
}

func (q *BoundedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *BoundedQueue[T]) Cap() int {
	return q.capacity
}

// Close rejects further pushes. Items already queued can still be popped.
func (q *BoundedQueue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
