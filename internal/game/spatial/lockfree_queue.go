// Package spatial provides the concurrent data structures the match actor
// model leans on: a lock-free mailbox queue and a ranked skip list.
package spatial

import (
	"runtime"
	"sync/atomic"
)

// CacheLineSize separates the producer and consumer cursors so many
// goroutines calling TryPush (one per connected player, from their own
// WebSocket read loop) don't thrash the single goroutine calling TryPop
// (the match actor draining its mailbox).
const CacheLineSize = 64

// Padding is cache-line-sized filler between hot fields.
type Padding [CacheLineSize]byte

// LockFreeQueue is a multi-producer/single-consumer ring buffer: any number
// of goroutines may TryPush concurrently, but TryPop must only ever be
// called from one goroutine at a time. That's exactly a match actor's
// mailbox shape - every player connection pushes inputs/shoots/purchases
// into it, and only the actor's own Run loop ever drains it.
type LockFreeQueue[T any] struct {
	_pad0 Padding

	head  uint64 // next slot a producer will claim
	_pad1 Padding

	tail uint64 // next slot the consumer will read
	_pad2 Padding

	mask uint64 // capacity-1, capacity is rounded up to a power of 2
	_pad3 Padding

	data []T
}

// NewLockFreeQueue allocates a queue with at least the requested capacity,
// rounded up to the next power of 2 so slot lookup is a mask instead of a
// modulo.
func NewLockFreeQueue[T any](capacity int) *LockFreeQueue[T] {
	cap := 1
	for cap < capacity {
		cap <<= 1
	}
	return &LockFreeQueue[T]{
		mask: uint64(cap - 1),
		data: make([]T, cap),
	}
}

// TryPush claims the next slot and writes item, or reports false if the
// mailbox is saturated. A saturated mailbox means its owning match actor
// has fallen behind its producers; the caller (match.go's enqueue) treats
// that as "drop this fire-and-forget command" rather than blocking a
// player's WebSocket read loop.
func (q *LockFreeQueue[T]) TryPush(item T) bool {
	for {
		head := atomic.LoadUint64(&q.head)
		tail := atomic.LoadUint64(&q.tail)

		if head-tail > q.mask {
			return false
		}

		if atomic.CompareAndSwapUint64(&q.head, head, head+1) {
			q.data[head&q.mask] = item
			return true
		}

		runtime.Gosched() // another producer won the race, retry
	}
}

// Push spins until TryPush succeeds. No production caller uses this - the
// match actor's mailbox always prefers TryPush's drop-on-full behavior -
// but it's kept for tests that want a simple blocking producer.
func (q *LockFreeQueue[T]) Push(item T) {
	for !q.TryPush(item) {
		runtime.Gosched()
	}
}

// TryPop removes the oldest item, or reports false if the queue is empty.
// Must only be called from the single consumer goroutine.
func (q *LockFreeQueue[T]) TryPop() (T, bool) {
	var zero T
	tail := atomic.LoadUint64(&q.tail)
	head := atomic.LoadUint64(&q.head)

	if tail >= head {
		return zero, false
	}

	item := q.data[tail&q.mask]
	atomic.StoreUint64(&q.tail, tail+1)
	return item, true
}

// Pop spins until an item is available. Kept for test convenience; the
// actor's drain loop always uses TryPop since it has other work (the tick
// timer) to fall back to when the mailbox is empty.
func (q *LockFreeQueue[T]) Pop() T {
	for {
		item, ok := q.TryPop()
		if ok {
			return item
		}
		runtime.Gosched()
	}
}

// Len reports the approximate number of queued items. A snapshot, not a
// guarantee - a producer may be mid-push when this is read.
func (q *LockFreeQueue[T]) Len() int {
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	if head < tail {
		return 0
	}
	return int(head - tail)
}

// Cap returns the queue's allocated capacity (mailboxCapacity, rounded up).
func (q *LockFreeQueue[T]) Cap() int {
	return int(q.mask + 1)
}

// IsEmpty reports whether the queue currently holds nothing.
func (q *LockFreeQueue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// IsFull reports whether the queue is at capacity - the point at which
// TryPush starts dropping commands.
func (q *LockFreeQueue[T]) IsFull() bool {
	return q.Len() >= q.Cap()
}

// Drain pops up to maxItems in one call, for a consumer that wants a batch
// without repeated TryPop round trips (the actor's drainMailbox loop calls
// TryPop directly).
func (q *LockFreeQueue[T]) Drain(maxItems int) []T {
	result := make([]T, 0, maxItems)
	for len(result) < maxItems {
		item, ok := q.TryPop()
		if !ok {
			break
		}
		result = append(result, item)
	}
	return result
}
