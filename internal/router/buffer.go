package router

import (
	"sync"
)

// GrowableBuffer is an unbounded FIFO queue between the router and its
// consumer. Send never blocks; the backing slice grows as needed and is
// compacted once the consumed prefix dominates it.
type GrowableBuffer[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	head   int // index of the next item to receive
	closed bool

	received int64
	sent     int64
	resizes  int
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count         int
	Capacity      int
	TotalReceived int64 // items accepted by Send
	TotalSent     int64 // items handed to consumers
	ResizeCount   int
}

// NewGrowableBuffer creates a buffer with the given initial capacity.
func NewGrowableBuffer[T any](initialCapacity int) *GrowableBuffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &GrowableBuffer[T]{items: make([]T, 0, initialCapacity)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Send appends item. It returns false once the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	if len(b.items) == cap(b.items) {
		b.makeRoom()
	}
	b.items = append(b.items, item)
	b.received++

	b.cond.Signal()
	return true
}

// Receive blocks until an item is available. It returns false when the
// buffer is closed and drained.
func (b *GrowableBuffer[T]) Receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count() == 0 && !b.closed {
		b.cond.Wait()
	}
	return b.pop()
}

// TryReceive returns the next item without blocking.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pop()
}

// ReceiveBatch blocks until at least one item is available and returns up
// to max items (all of them when max <= 0). It returns nil when the buffer
// is closed and drained.
func (b *GrowableBuffer[T]) ReceiveBatch(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count() == 0 && !b.closed {
		b.cond.Wait()
	}

	n := b.count()
	if n == 0 {
		return nil
	}
	if max > 0 && max < n {
		n = max
	}

	out := make([]T, n)
	copy(out, b.items[b.head:b.head+n])
	b.advance(n)
	return out
}

// Close stops accepting items and wakes blocked receivers. Items already
// queued can still be received. Close is idempotent.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// Len returns the number of queued items.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count()
}

// Stats returns buffer statistics.
func (b *GrowableBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:         b.count(),
		Capacity:      cap(b.items),
		TotalReceived: b.received,
		TotalSent:     b.sent,
		ResizeCount:   b.resizes,
	}
}

// count must be called with the lock held.
func (b *GrowableBuffer[T]) count() int {
	return len(b.items) - b.head
}

// pop must be called with the lock held.
func (b *GrowableBuffer[T]) pop() (T, bool) {
	var zero T
	if b.count() == 0 {
		return zero, false
	}
	item := b.items[b.head]
	b.advance(1)
	return item, true
}

// advance drops n items from the front. Must be called with the lock held.
func (b *GrowableBuffer[T]) advance(n int) {
	var zero T
	for i := b.head; i < b.head+n; i++ {
		b.items[i] = zero // release references
	}
	b.head += n
	b.sent += int64(n)

	if b.head == len(b.items) {
		b.items = b.items[:0]
		b.head = 0
	}
}

// makeRoom compacts the consumed prefix when it is at least half the
// slice, and doubles the capacity otherwise. Must be called with the lock
// held.
func (b *GrowableBuffer[T]) makeRoom() {
	if b.head > 0 && b.head >= len(b.items)/2 {
		n := copy(b.items, b.items[b.head:])
		var zero T
		for i := n; i < len(b.items); i++ {
			b.items[i] = zero
		}
		b.items = b.items[:n]
		b.head = 0
		return
	}

	grown := make([]T, b.count(), 2*cap(b.items))
	copy(grown, b.items[b.head:])
	b.items = grown
	b.head = 0
	b.resizes++
}
