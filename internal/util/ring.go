package util

import "sync"

// RingHistory is a fixed capacity FIFO buffer.
// Once full, every Add overwrites the oldest element.
type RingHistory[T any] struct {
	mu sync.RWMutex

	// backing storage, never resized
	items []T
	// index of the slot the next Add writes to
	next int
	// number of valid elements, never exceeds cap(items)
	count int
}

func NewRingHistory[T any](capacity int) *RingHistory[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingHistory[T]{
		items: make([]T, capacity),
	}
}

func (r *RingHistory[T]) Add(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.next] = item
	r.next = (r.next + 1) % len(r.items)
	if r.count < len(r.items) {
		r.count++
	}
}

// Snapshot returns a copy of all stored elements, oldest first
func (r *RingHistory[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]T, 0, r.count)
	start := 0
	if r.count == len(r.items) {
		start = r.next
	}
	for i := 0; i < r.count; i++ {
		result = append(result, r.items[(start+i)%len(r.items)])
	}
	return result
}

func (r *RingHistory[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

func (r *RingHistory[T]) Capacity() int {
	return len(r.items)
}

func (r *RingHistory[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.next = 0
	r.count = 0
}
