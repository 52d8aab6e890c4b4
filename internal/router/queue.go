package router

import (
	"sync"
)

// Queue is an unbounded FIFO ring that doubles its backing array when full.
// Push never blocks; Pop blocks until an item arrives or the queue is closed.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   []T
	head   int // next item to pop
	count  int
	closed bool

	// Stats
	pushed  int64
	popped  int64
	resizes int
}

// NewQueue creates a queue with room for initialCapacity items before the
// first resize.
func NewQueue[T any](initialCapacity int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	q := &Queue[T]{
		ring: make([]T, initialCapacity),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item. It returns false once the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.count == len(q.ring) {
		q.resize()
	}

	q.ring[(q.head+q.count)%len(q.ring)] = item
	q.count++
	q.pushed++

	q.cond.Signal()
	return true
}

// Pop removes the oldest item, waiting for one if the queue is empty.
// After Close it keeps returning queued items, then the zero value and false.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.take(), true
}

// Close stops accepting items and wakes every waiter.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Queued:   q.count,
		Capacity: len(q.ring),
		Pushed:   q.pushed,
		Popped:   q.popped,
		Resizes:  q.resizes,
	}
}

// QueueStats contains queue statistics.
type QueueStats struct {
	Queued   int
	Capacity int
	Pushed   int64
	Popped   int64
	Resizes  int
}

// take pops the head item. Must be called with lock held and count > 0.
func (q *Queue[T]) take() T {
	item := q.ring[q.head]
	var zero T
	q.ring[q.head] = zero // Clear reference for GC
	q.head = (q.head + 1) % len(q.ring)
	q.count--
	q.popped++
	return item
}

// resize doubles the ring, unwrapping items to start at index 0.
func (q *Queue[T]) resize() {
	grown := make([]T, len(q.ring)*2)
	n := copy(grown, q.ring[q.head:])
	copy(grown[n:], q.ring[:q.head])

	q.ring = grown
	q.head = 0
	q.resizes++
}
