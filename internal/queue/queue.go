// Package queue provides a bounded multi-producer queue with an explicit
// drop-incoming overflow policy.
//
// Producers never block: once the queue is at capacity, Offer discards the
// item and reports the drop to the caller. The single consumer drains items
// in batches; the lock is held only for the drain itself, never across any
// I/O the consumer performs with the drained batch.
package queue

import "sync"

// Bounded is a fixed-capacity FIFO queue safe for concurrent use.
type Bounded[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
}

// NewBounded creates a queue that holds at most capacity items.
// A non-positive capacity is treated as 1.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bounded[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Offer appends item unless the queue is full. It returns the resulting
// queue length and whether the item was accepted.
func (q *Bounded[T]) Offer(item T) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		return len(q.items), false
	}
	q.items = append(q.items, item)
	return len(q.items), true
}

// Drain removes and returns up to max items in enqueue order.
func (q *Bounded[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if n == 0 || max <= 0 {
		return nil
	}
	if n > max {
		n = max
	}

	batch := make([]T, n)
	copy(batch, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	return batch
}

// Requeue appends items behind anything that arrived since they were
// drained, stopping at capacity. It returns how many items were kept.
// Retried items therefore may be delivered out of original order.
func (q *Bounded[T]) Requeue(items []T) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := 0
	for _, item := range items {
		if len(q.items) >= q.capacity {
			break
		}
		q.items = append(q.items, item)
		kept++
	}
	return kept
}

// Len returns the current number of queued items.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the fixed capacity.
func (q *Bounded[T]) Cap() int {
	return q.capacity
}
