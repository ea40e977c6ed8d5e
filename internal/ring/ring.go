// Package ring implements a bounded single-producer/single-consumer queue
// used for every cross-thread hand-off in the rendering core: PTY bytes into
// the emulator's parser goroutine, control commands into the same goroutine,
// and outbound writes into the PTY writer goroutine.
package ring

import "sync/atomic"

const cacheLine = 64

// Ring is a power-of-two bounded SPSC queue. The zero value is not usable;
// construct with New. A Ring must not be shared by more than one producer or
// more than one consumer goroutine — that discipline is enforced by
// convention, not by the type system.
type Ring[T any] struct {
	// Consumer-owned: head advances on Pop, cachedTail avoids a cross-core
	// read of tail on every Pop.
	head       atomic.Uint64
	cachedTail uint64
	_pad0      [cacheLine - 8]byte

	// Producer-owned: tail advances on Push, cachedHead avoids a cross-core
	// read of head on every Push.
	tail       atomic.Uint64
	cachedHead uint64
	_pad1      [cacheLine - 8]byte

	producerClosed atomic.Bool
	consumerClosed atomic.Bool

	buf  []T
	mask uint64
}

// New creates a Ring with capacity rounded up to the next power of two.
// A zero or negative size defaults to 256.
func New[T any](size int) *Ring[T] {
	if size <= 0 {
		size = 256
	}
	cap := 1
	for cap < size {
		cap <<= 1
	}
	return &Ring[T]{
		buf:  make([]T, cap),
		mask: uint64(cap - 1),
	}
}

// Cap returns the ring's fixed capacity.
func (r *Ring[T]) Cap() int { return int(r.mask) + 1 }

// Len returns the current occupancy. Racy by nature (only advisory).
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// TryPush attempts a non-blocking push. It returns false, leaving the value
// with the caller, if the ring is full or the consumer side has closed.
func (r *Ring[T]) TryPush(v T) (ok bool) {
	if r.consumerClosed.Load() {
		return false
	}
	tail := r.tail.Load()
	if tail-r.cachedHead > r.mask {
		r.cachedHead = r.head.Load()
		if tail-r.cachedHead > r.mask {
			return false
		}
	}
	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// PushBlocking spins briefly, then yields, until the value is accepted or
// the consumer closes. Returns false if the consumer closed before the push
// could complete.
func (r *Ring[T]) PushBlocking(v T) bool {
	const spinIters = 64
	for i := 0; ; i++ {
		if r.TryPush(v) {
			return true
		}
		if r.consumerClosed.Load() {
			return false
		}
		if i < spinIters {
			continue
		}
		gosched()
	}
}

// TryPop attempts a non-blocking pop. ok is false if the ring is currently
// empty.
func (r *Ring[T]) TryPop() (v T, ok bool) {
	head := r.head.Load()
	if head == r.cachedTail {
		r.cachedTail = r.tail.Load()
		if head == r.cachedTail {
			return v, false
		}
	}
	v = r.buf[head&r.mask]
	var zero T
	r.buf[head&r.mask] = zero
	r.head.Store(head + 1)
	return v, true
}

// CloseProducer marks the producer side closed. After this, TryPop continues
// to drain any remaining items; once drained, Drained reports true, which is
// the consumer's EOF signal.
func (r *Ring[T]) CloseProducer() { r.producerClosed.Store(true) }

// CloseConsumer marks the consumer side closed. After this, Push calls fail.
func (r *Ring[T]) CloseConsumer() { r.consumerClosed.Store(true) }

// IsProducerClosed reports whether the producer side has closed.
func (r *Ring[T]) IsProducerClosed() bool { return r.producerClosed.Load() }

// IsConsumerClosed reports whether the consumer side has closed.
func (r *Ring[T]) IsConsumerClosed() bool { return r.consumerClosed.Load() }

// Drained reports whether the producer has closed and no items remain —
// the consumer's signal to stop polling.
func (r *Ring[T]) Drained() bool {
	return r.IsProducerClosed() && r.head.Load() == r.tail.Load()
}
