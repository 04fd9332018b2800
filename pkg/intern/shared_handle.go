package intern

import "go.uber.org/atomic"

// A SharedHandle is the cross-domain counterpart of Handle: its reference
// count is atomic, so handles already taken out of a table may be cloned,
// read and released from any goroutine without external synchronization.
// The table that produced them still requires external exclusive access for
// its mutating operations.
type SharedHandle[T any] struct {
	b *sharedBox[T]
}

// Value returns the interned value. The value must not be mutated through
// any reference reachable from it.
func (h SharedHandle[T]) Value() T { return h.b.val }

// Clone returns a new handle to the same allocation and increments the
// reference count.
func (h SharedHandle[T]) Clone() SharedHandle[T] {
	h.b.retain()
	return h
}

// Release drops this handle's share of the reference count. The handle must
// not be used afterwards.
func (h SharedHandle[T]) Release() { h.b.release() }

// Refs returns the current holder count, including the owning table's own
// share while the entry is resident. The count is a momentary observation
// and may be stale by the time it is read.
func (h SharedHandle[T]) Refs() int64 { return h.b.count() }

// Same reports whether two handles point at the exact same allocation.
func (h SharedHandle[T]) Same(o SharedHandle[T]) bool { return h.b == o.b }

type sharedBox[T any] struct {
	val  T
	refs atomic.Int64
}

func newSharedBox[T any](val T, refs int64) *sharedBox[T] {
	b := &sharedBox[T]{val: val}
	b.refs.Store(refs)
	return b
}

func (b *sharedBox[T]) value() T { return b.val }

func (b *sharedBox[T]) retain() {
	if b.refs.Inc() <= 1 {
		panic("intern: Clone of a released handle")
	}
}

func (b *sharedBox[T]) release() int64 {
	n := b.refs.Dec()
	if n < 0 {
		panic("intern: Release of a released handle")
	}
	return n
}

func (b *sharedBox[T]) count() int64 { return b.refs.Load() }
