// Package queue implements the bounded multi-producer/single-consumer
// handoff used between pipeline stages (spec.md §4.4): raw-frame copies to
// the encoder worker, encoded packets to the decoder worker, encoded audio
// to the audio-decode worker.
package queue

import "sync"

// Queue is a bounded MPSC channel of owned items of type T. Push never
// blocks, dropping the item if the buffer is full; Pop blocks until an
// item is available or the queue is closed. A Go channel already gives
// ownership-transfer semantics for free: once a producer hands a value to
// Push, it must not touch it again, exactly matching the "consumer
// observes an immutable snapshot" invariant the reference implementation
// enforces via copy-on-enqueue.
type Queue[T any] struct {
	ch chan T

	closeOnce sync.Once
}

// New creates a Queue with the given buffer capacity.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Push enqueues an item without blocking. If the buffer is full, the item
// is dropped and ok is false — callers on the hot path (control thread,
// socket-intake loop) are never allowed to stall (spec.md §4.4, §5), so a
// saturated queue sheds the incoming item rather than applying backpressure.
// Push panics if called after Close, matching the "producer owns shutdown
// sequencing" contract: callers must stop pushing before closing.
func (q *Queue[T]) Push(item T) (ok bool) {
	select {
	case q.ch <- item:
		return true
	default:
		return false
	}
}

// Pop blocks until an item is available or the queue is closed, in which
// case ok is false and the zero value is returned.
func (q *Queue[T]) Pop() (item T, ok bool) {
	item, ok = <-q.ch
	return item, ok
}

// Close closes the underlying channel. Safe to call multiple times; only
// the first call has effect. Consumers ranging over Pop see ok=false once
// all buffered items have drained.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.ch)
	})
}

// Len reports the number of items currently buffered.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}
