package intern

// A Handle is a reference-counted pointer to an interned value. All handles
// for equal values returned by the same interner point at the same underlying
// allocation, so handles can be compared with Same in place of deep equality.
//
// Handles are cheap to copy, but the reference count follows Clone and
// Release, not Go assignment: every handle obtained from an interner or from
// Clone must be paired with exactly one Release. Misuse panics.
//
// A Handle is only valid within the ownership domain of the interner that
// produced it. For handles that cross goroutines, use the Shared variants.
type Handle[T any] struct {
	b *box[T]
}

// Value returns the interned value. The value must not be mutated through
// any reference reachable from it.
func (h Handle[T]) Value() T { return h.b.val }

// Clone returns a new handle to the same allocation and increments the
// reference count.
func (h Handle[T]) Clone() Handle[T] {
	h.b.retain()
	return h
}

// Release drops this handle's share of the reference count. The handle must
// not be used afterwards.
func (h Handle[T]) Release() { h.b.release() }

// Refs returns the current holder count, including the owning table's own
// share while the entry is resident.
func (h Handle[T]) Refs() int64 { return h.b.count() }

// Same reports whether two handles point at the exact same allocation. This
// is pointer identity, strictly stronger than value equality.
func (h Handle[T]) Same(o Handle[T]) bool { return h.b == o.b }

// box carries the value and its manually maintained reference count. The
// count includes the table's own +1 while the entry is resident.
type box[T any] struct {
	val  T
	refs int64
}

func (b *box[T]) value() T { return b.val }

func (b *box[T]) retain() {
	if b.refs <= 0 {
		panic("intern: Clone of a released handle")
	}
	b.refs++
}

func (b *box[T]) release() int64 {
	if b.refs <= 0 {
		panic("intern: Release of a released handle")
	}
	b.refs--
	return b.refs
}

func (b *box[T]) count() int64 { return b.refs }
