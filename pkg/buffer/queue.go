package buffer

import "sync"

// Bounds defaults.
const (
	// DefaultMax is the default queue capacity.
	DefaultMax = 32

	// DefaultMin is the default release threshold.
	DefaultMin = 0
)

// Queue is a thread-safe bounded FIFO with drop-newest overflow.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T

	max int
	min int

	dropped int64
}

// NewQueue creates a queue with the given capacity and release
// threshold. Non-positive max falls back to DefaultMax; negative min
// falls back to DefaultMin.
func NewQueue[T any](max, min int) *Queue[T] {
	if max <= 0 {
		max = DefaultMax
	}
	if min < 0 {
		min = DefaultMin
	}
	return &Queue[T]{max: max, min: min}
}

// Push appends item unless the queue is at capacity, in which case
// the item is dropped. Returns true if the item was enqueued.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.max {
		q.dropped++
		return false
	}
	q.items = append(q.items, item)
	return true
}

// DrainAtLeast removes and returns all items if the queue length has
// reached the release threshold (length >= min). Used for the
// outbound queue.
func (q *Queue[T]) DrainAtLeast() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) < q.min {
		return nil
	}
	return q.takeAll()
}

// DrainAbove removes and returns all items if the queue length
// exceeds the release threshold (length > min). Used for the inbound
// queue.
func (q *Queue[T]) DrainAbove() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) <= q.min {
		return nil
	}
	return q.takeAll()
}

// Clear discards all queued items.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the number of items discarded at capacity.
func (q *Queue[T]) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Snapshot returns a copy of the queued items without removing them.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

// takeAll detaches and returns the current items.
// Caller must hold q.mu.
func (q *Queue[T]) takeAll() []T {
	out := q.items
	q.items = nil
	return out
}
