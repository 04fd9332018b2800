package intern

import (
	"hash/maphash"
	"slices"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/fasthash/fnv1a"
	"go.uber.org/atomic"
)

// sharedCounts keeps the statistics of the cross-domain tables atomic, so
// TryIntern remains safe under shared (read) access to the table.
type sharedCounts struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	inserts   atomic.Uint64
	evictions atomic.Uint64
}

func (c *sharedCounts) snapshot(dataBytes uint64) Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Inserts:   c.inserts.Load(),
		Evictions: c.evictions.Load(),
		DataBytes: dataBytes,
	}
}

// SharedInterner is the cross-domain counterpart of Interner: it hands out
// SharedHandles whose reference counts are atomic. Handles taken out of the
// table need no further coordination. The table itself still requires
// external exclusive access for Intern, Compact and Reset; shared (read)
// access suffices for TryIntern, Len and Stats.
type SharedInterner[T comparable] struct {
	tab   *table[T, *sharedBox[T]]
	seed  maphash.Seed
	stats sharedCounts
}

// NewShared returns an empty cross-domain value interner.
func NewShared[T comparable]() *SharedInterner[T] {
	var zero T
	sz := uint64(unsafe.Sizeof(zero))
	return &SharedInterner[T]{
		tab:  newTable[T, *sharedBox[T]](func(T) uint64 { return sz }),
		seed: maphash.MakeSeed(),
	}
}

// TryIntern performs a lookup only. If an equal value is resident it returns
// a new handle to it, otherwise (zero, false). It never inserts.
func (in *SharedInterner[T]) TryIntern(v T) (SharedHandle[T], bool) {
	e, ok := in.tab.find(maphash.Comparable(in.seed, v), func(x T) bool { return x == v })
	if !ok {
		in.stats.misses.Inc()
		return SharedHandle[T]{}, false
	}
	in.stats.hits.Inc()
	e.retain()
	return SharedHandle[T]{e}, true
}

// Intern returns the canonical handle for v, inserting v as the canonical
// allocation if no equal value is resident.
func (in *SharedInterner[T]) Intern(v T) SharedHandle[T] {
	token := maphash.Comparable(in.seed, v)
	if e, ok := in.tab.find(token, func(x T) bool { return x == v }); ok {
		in.stats.hits.Inc()
		e.retain()
		return SharedHandle[T]{e}
	}
	in.stats.misses.Inc()
	in.stats.inserts.Inc()
	e := newSharedBox(v, 2) // the table's share plus the caller's
	in.tab.insert(token, e)
	return SharedHandle[T]{e}
}

// Compact purges every entry whose only remaining holder is the table itself
// and returns the number purged.
func (in *SharedInterner[T]) Compact() int {
	purged, _ := in.tab.compact()
	in.stats.evictions.Add(uint64(purged))
	return purged
}

// Reset drops the table's share on every entry and clears the table.
// External handles stay valid.
func (in *SharedInterner[T]) Reset() { in.tab.reset() }

// Len returns the number of resident entries.
func (in *SharedInterner[T]) Len() int { return in.tab.len() }

// Stats returns a snapshot of the table's counters.
func (in *SharedInterner[T]) Stats() Stats { return in.stats.snapshot(in.tab.size()) }

// SharedSliceInterner is the cross-domain counterpart of SliceInterner.
type SharedSliceInterner[T comparable] struct {
	tab   *table[[]T, *sharedBox[[]T]]
	seed  maphash.Seed
	stats sharedCounts
}

// NewSharedSlice returns an empty cross-domain slice interner.
func NewSharedSlice[T comparable]() *SharedSliceInterner[T] {
	var zero T
	elemSz := uint64(unsafe.Sizeof(zero))
	return &SharedSliceInterner[T]{
		tab:  newTable[[]T, *sharedBox[[]T]](func(s []T) uint64 { return uint64(len(s)) * elemSz }),
		seed: maphash.MakeSeed(),
	}
}

func (in *SharedSliceInterner[T]) token(s []T) uint64 {
	h := fnv1a.AddUint64(fnv1a.Init64, uint64(len(s)))
	for _, v := range s {
		h = fnv1a.AddUint64(h, maphash.Comparable(in.seed, v))
	}
	return h
}

// TryIntern performs a lookup only, without inserting or copying s.
func (in *SharedSliceInterner[T]) TryIntern(s []T) (SharedHandle[[]T], bool) {
	e, ok := in.tab.find(in.token(s), func(x []T) bool { return slices.Equal(x, s) })
	if !ok {
		in.stats.misses.Inc()
		return SharedHandle[[]T]{}, false
	}
	in.stats.hits.Inc()
	e.retain()
	return SharedHandle[[]T]{e}, true
}

// Intern returns the canonical handle for the contents of s, cloning s only
// on the miss path.
func (in *SharedSliceInterner[T]) Intern(s []T) SharedHandle[[]T] {
	token := in.token(s)
	if e, ok := in.tab.find(token, func(x []T) bool { return slices.Equal(x, s) }); ok {
		in.stats.hits.Inc()
		e.retain()
		return SharedHandle[[]T]{e}
	}
	in.stats.misses.Inc()
	in.stats.inserts.Inc()
	e := newSharedBox(slices.Clone(s), 2)
	in.tab.insert(token, e)
	return SharedHandle[[]T]{e}
}

// InternOwned adopts the slice's backing array on a miss without copying.
// The caller must not use s afterwards.
func (in *SharedSliceInterner[T]) InternOwned(s []T) SharedHandle[[]T] {
	token := in.token(s)
	if e, ok := in.tab.find(token, func(x []T) bool { return slices.Equal(x, s) }); ok {
		in.stats.hits.Inc()
		e.retain()
		return SharedHandle[[]T]{e}
	}
	in.stats.misses.Inc()
	in.stats.inserts.Inc()
	e := newSharedBox(s, 2)
	in.tab.insert(token, e)
	return SharedHandle[[]T]{e}
}

// Compact purges every entry whose only remaining holder is the table itself
// and returns the number purged.
func (in *SharedSliceInterner[T]) Compact() int {
	purged, _ := in.tab.compact()
	in.stats.evictions.Add(uint64(purged))
	return purged
}

// Reset drops the table's share on every entry and clears the table.
func (in *SharedSliceInterner[T]) Reset() { in.tab.reset() }

// Len returns the number of resident entries.
func (in *SharedSliceInterner[T]) Len() int { return in.tab.len() }

// Stats returns a snapshot of the table's counters.
func (in *SharedSliceInterner[T]) Stats() Stats { return in.stats.snapshot(in.tab.size()) }

// SharedStringInterner is the cross-domain counterpart of StringInterner.
type SharedStringInterner struct {
	tab   *table[string, *sharedBox[string]]
	stats sharedCounts
}

// NewSharedString returns an empty cross-domain string interner.
func NewSharedString() *SharedStringInterner {
	return &SharedStringInterner{
		tab: newTable[string, *sharedBox[string]](func(s string) uint64 { return uint64(len(s)) }),
	}
}

// TryIntern performs a lookup only.
func (in *SharedStringInterner) TryIntern(s string) (SharedHandle[string], bool) {
	e, ok := in.tab.find(xxhash.Sum64String(s), func(x string) bool { return x == s })
	if !ok {
		in.stats.misses.Inc()
		return SharedHandle[string]{}, false
	}
	in.stats.hits.Inc()
	e.retain()
	return SharedHandle[string]{e}, true
}

// TryInternBytes performs a lookup for the string equal to b without
// inserting, copying or converting b.
func (in *SharedStringInterner) TryInternBytes(b []byte) (SharedHandle[string], bool) {
	s := bytesToString(b)
	e, ok := in.tab.find(xxhash.Sum64(b), func(x string) bool { return x == s })
	if !ok {
		in.stats.misses.Inc()
		return SharedHandle[string]{}, false
	}
	in.stats.hits.Inc()
	e.retain()
	return SharedHandle[string]{e}, true
}

// Intern returns the canonical handle for s, retaining s itself on a miss.
func (in *SharedStringInterner) Intern(s string) SharedHandle[string] {
	token := xxhash.Sum64String(s)
	if e, ok := in.tab.find(token, func(x string) bool { return x == s }); ok {
		in.stats.hits.Inc()
		e.retain()
		return SharedHandle[string]{e}
	}
	in.stats.misses.Inc()
	in.stats.inserts.Inc()
	e := newSharedBox(s, 2)
	in.tab.insert(token, e)
	return SharedHandle[string]{e}
}

// InternBytes returns the canonical handle for the string equal to b,
// copying b into a new string only on the miss path.
func (in *SharedStringInterner) InternBytes(b []byte) SharedHandle[string] {
	token := xxhash.Sum64(b)
	s := bytesToString(b)
	if e, ok := in.tab.find(token, func(x string) bool { return x == s }); ok {
		in.stats.hits.Inc()
		e.retain()
		return SharedHandle[string]{e}
	}
	in.stats.misses.Inc()
	in.stats.inserts.Inc()
	e := newSharedBox(string(b), 2)
	in.tab.insert(token, e)
	return SharedHandle[string]{e}
}

// Compact purges every entry whose only remaining holder is the table itself
// and returns the number purged.
func (in *SharedStringInterner) Compact() int {
	purged, _ := in.tab.compact()
	in.stats.evictions.Add(uint64(purged))
	return purged
}

// Reset drops the table's share on every entry and clears the table.
func (in *SharedStringInterner) Reset() { in.tab.reset() }

// Len returns the number of resident entries.
func (in *SharedStringInterner) Len() int { return in.tab.len() }

// Stats returns a snapshot of the table's counters.
func (in *SharedStringInterner) Stats() Stats { return in.stats.snapshot(in.tab.size()) }
