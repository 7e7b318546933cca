// Package queue provides an unbounded FIFO safe for concurrent producers and
// consumers, with a blocking pop bounded by a timeout.
package queue

import (
	"sync"
	"time"
)

// Queue is an unbounded FIFO. The zero value is not usable; call New.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	notify chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{notify: make(chan struct{}, 1)}
}

// Push appends v and wakes one waiting consumer.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryPop removes the oldest element without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// PopTimeout removes the oldest element, waiting up to timeout for one to
// arrive. It returns false if the queue stayed empty.
func (q *Queue[T]) PopTimeout(timeout time.Duration) (T, bool) {
	if v, ok := q.TryPop(); ok {
		return v, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-q.notify:
			if v, ok := q.TryPop(); ok {
				q.rearm()
				return v, true
			}
		case <-timer.C:
			return q.TryPop()
		}
	}
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Drain removes and returns all queued elements.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := append([]T(nil), q.items[q.head:]...)
	q.reset()
	return out
}

// rearm passes the wakeup on if elements remain, so a second consumer is not
// left sleeping on a non-empty queue.
func (q *Queue[T]) rearm() {
	if q.Len() == 0 {
		return
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	if q.head == len(q.items) {
		return zero, false
	}
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.reset()
	}
	return v, true
}

func (q *Queue[T]) reset() {
	q.items = q.items[:0]
	q.head = 0
}
