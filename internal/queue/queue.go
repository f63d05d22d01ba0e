// Package queue implements the bounded blocking FIFO used between the
// dispatcher and its strategy runners. Multiple producers and a single
// consumer are supported; shutdown wakes every waiter and lets the
// consumer drain remaining items.
package queue

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrShutdown is returned by Push after Shutdown has been called, and by
// the pop operations once the queue is shut down and drained.
var ErrShutdown = errors.New("queue: shut down")

// ErrTimeout is returned by TimedWaitAndPop when the wait expires.
var ErrTimeout = errors.New("queue: timed out")

// BlockingQueue is a FIFO of capacity maxSize (0 = unbounded) guarded by
// a mutex and two condition variables, one per direction.
type BlockingQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    *list.List
	maxSize  int
	shutdown bool
}

// New creates a queue. maxSize 0 means unbounded.
func New[T any](maxSize int) *BlockingQueue[T] {
	q := &BlockingQueue[T]{
		items:   list.New(),
		maxSize: maxSize,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push appends item, blocking while the queue is full. It returns
// ErrShutdown if the queue was shut down before a slot became available.
func (q *BlockingQueue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.maxSize > 0 && q.items.Len() >= q.maxSize && !q.shutdown {
		q.notFull.Wait()
	}
	if q.shutdown {
		return ErrShutdown
	}

	q.items.PushBack(item)
	q.notEmpty.Signal()
	return nil
}

// WaitAndPop blocks until an item is available and returns it. After
// Shutdown it keeps returning queued items until the queue is empty,
// then reports ErrShutdown.
func (q *BlockingQueue[T]) WaitAndPop() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 && !q.shutdown {
		q.notEmpty.Wait()
	}
	return q.popLocked()
}

// TryPop returns the front item without blocking. ok is false when the
// queue is empty or shut down with nothing left to drain.
func (q *BlockingQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.items.Len() == 0 {
		return zero, false
	}
	item, err := q.popLocked()
	if err != nil {
		return zero, false
	}
	return item, true
}

// TimedWaitAndPop behaves like WaitAndPop but gives up after timeout,
// returning ErrTimeout.
func (q *BlockingQueue[T]) TimedWaitAndPop(timeout time.Duration) (T, error) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 && !q.shutdown {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			var zero T
			return zero, ErrTimeout
		}
		q.waitLocked(remaining)
	}
	return q.popLocked()
}

// Shutdown marks the queue as closed and wakes every blocked producer
// and consumer. Idempotent. Pushes are refused afterwards; pops drain
// whatever is still queued.
func (q *BlockingQueue[T]) Shutdown() {
	q.mu.Lock()
	q.shutdown = true
	q.mu.Unlock()

	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// IsShutdown reports whether Shutdown has been called.
func (q *BlockingQueue[T]) IsShutdown() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shutdown
}

// Len returns the number of queued items.
func (q *BlockingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Empty reports whether the queue holds no items.
func (q *BlockingQueue[T]) Empty() bool {
	return q.Len() == 0
}

func (q *BlockingQueue[T]) popLocked() (T, error) {
	var zero T
	if q.items.Len() == 0 {
		if q.shutdown {
			return zero, ErrShutdown
		}
		return zero, ErrTimeout
	}
	front := q.items.Front()
	q.items.Remove(front)
	q.notFull.Signal()
	return front.Value.(T), nil
}

// waitLocked waits on notEmpty with an upper bound. sync.Cond has no
// timed wait, so a helper goroutine broadcasts after the deadline.
func (q *BlockingQueue[T]) waitLocked(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()
	q.notEmpty.Wait()
}
