package intern

import (
	"hash/maphash"
	"slices"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/fasthash/fnv1a"
)

// Interner deduplicates comparable values behind reference-counted handles.
// It is not safe for concurrent use; see the package doc for the ownership
// model.
type Interner[T comparable] struct {
	tab   *table[T, *box[T]]
	seed  maphash.Seed
	stats counts
}

// New returns an empty value interner.
func New[T comparable]() *Interner[T] {
	var zero T
	sz := uint64(unsafe.Sizeof(zero))
	return &Interner[T]{
		tab:  newTable[T, *box[T]](func(T) uint64 { return sz }),
		seed: maphash.MakeSeed(),
	}
}

// TryIntern performs a lookup only. If an equal value is resident it returns
// a new handle to it, otherwise (zero, false). It never inserts.
func (in *Interner[T]) TryIntern(v T) (Handle[T], bool) {
	e, ok := in.tab.find(maphash.Comparable(in.seed, v), func(x T) bool { return x == v })
	if !ok {
		in.stats.misses++
		return Handle[T]{}, false
	}
	in.stats.hits++
	e.retain()
	return Handle[T]{e}, true
}

// Intern returns the canonical handle for v, inserting v as the canonical
// allocation if no equal value is resident. The first value ever inserted
// stays canonical until purged.
func (in *Interner[T]) Intern(v T) Handle[T] {
	token := maphash.Comparable(in.seed, v)
	if e, ok := in.tab.find(token, func(x T) bool { return x == v }); ok {
		in.stats.hits++
		e.retain()
		return Handle[T]{e}
	}
	in.stats.misses++
	in.stats.inserts++
	e := &box[T]{val: v, refs: 2} // the table's share plus the caller's
	in.tab.insert(token, e)
	return Handle[T]{e}
}

// Compact purges every entry whose only remaining holder is the table itself
// and returns the number purged. This is the only reclamation mechanism;
// entries nobody references stay resident until it runs.
func (in *Interner[T]) Compact() int {
	purged, _ := in.tab.compact()
	in.stats.evictions += uint64(purged)
	return purged
}

// Reset drops the table's share on every entry and clears the table.
// External handles stay valid.
func (in *Interner[T]) Reset() { in.tab.reset() }

// Len returns the number of resident entries.
func (in *Interner[T]) Len() int { return in.tab.len() }

// Stats returns a snapshot of the table's counters.
func (in *Interner[T]) Stats() Stats { return in.stats.snapshot(in.tab.size()) }

// SliceInterner deduplicates slices of comparable elements. Equal contents
// collapse to one backing array regardless of which entry point supplied
// them; nil and empty slices intern as the same key.
type SliceInterner[T comparable] struct {
	tab   *table[[]T, *box[[]T]]
	seed  maphash.Seed
	stats counts
}

// NewSlice returns an empty slice interner.
func NewSlice[T comparable]() *SliceInterner[T] {
	var zero T
	elemSz := uint64(unsafe.Sizeof(zero))
	return &SliceInterner[T]{
		tab:  newTable[[]T, *box[[]T]](func(s []T) uint64 { return uint64(len(s)) * elemSz }),
		seed: maphash.MakeSeed(),
	}
}

// token folds per-element hashes into a length-prefixed fnv1a chain, so that
// the hash is sensitive to both element order and slice boundaries.
func (in *SliceInterner[T]) token(s []T) uint64 {
	h := fnv1a.AddUint64(fnv1a.Init64, uint64(len(s)))
	for _, v := range s {
		h = fnv1a.AddUint64(h, maphash.Comparable(in.seed, v))
	}
	return h
}

// TryIntern performs a lookup only, without inserting or copying s.
func (in *SliceInterner[T]) TryIntern(s []T) (Handle[[]T], bool) {
	e, ok := in.tab.find(in.token(s), func(x []T) bool { return slices.Equal(x, s) })
	if !ok {
		in.stats.misses++
		return Handle[[]T]{}, false
	}
	in.stats.hits++
	e.retain()
	return Handle[[]T]{e}, true
}

// Intern returns the canonical handle for the contents of s. On a miss the
// slice is cloned so the canonical allocation is independent of the caller's
// backing array; hits never allocate.
func (in *SliceInterner[T]) Intern(s []T) Handle[[]T] {
	token := in.token(s)
	if e, ok := in.tab.find(token, func(x []T) bool { return slices.Equal(x, s) }); ok {
		in.stats.hits++
		e.retain()
		return Handle[[]T]{e}
	}
	in.stats.misses++
	in.stats.inserts++
	e := &box[[]T]{val: slices.Clone(s), refs: 2}
	in.tab.insert(token, e)
	return Handle[[]T]{e}
}

// InternOwned is Intern for a slice the caller hands over: on a miss the
// slice's backing array is adopted as the canonical allocation without
// copying. The caller must not use s afterwards.
func (in *SliceInterner[T]) InternOwned(s []T) Handle[[]T] {
	token := in.token(s)
	if e, ok := in.tab.find(token, func(x []T) bool { return slices.Equal(x, s) }); ok {
		in.stats.hits++
		e.retain()
		return Handle[[]T]{e}
	}
	in.stats.misses++
	in.stats.inserts++
	e := &box[[]T]{val: s, refs: 2}
	in.tab.insert(token, e)
	return Handle[[]T]{e}
}

// Compact purges every entry whose only remaining holder is the table itself
// and returns the number purged.
func (in *SliceInterner[T]) Compact() int {
	purged, _ := in.tab.compact()
	in.stats.evictions += uint64(purged)
	return purged
}

// Reset drops the table's share on every entry and clears the table.
func (in *SliceInterner[T]) Reset() { in.tab.reset() }

// Len returns the number of resident entries.
func (in *SliceInterner[T]) Len() int { return in.tab.len() }

// Stats returns a snapshot of the table's counters.
func (in *SliceInterner[T]) Stats() Stats { return in.stats.snapshot(in.tab.size()) }

// StringInterner deduplicates strings. The byte entry points hash and compare
// without converting, so a []byte lookup that hits never allocates.
type StringInterner struct {
	tab   *table[string, *box[string]]
	stats counts
}

// NewString returns an empty string interner.
func NewString() *StringInterner {
	return &StringInterner{
		tab: newTable[string, *box[string]](func(s string) uint64 { return uint64(len(s)) }),
	}
}

// TryIntern performs a lookup only.
func (in *StringInterner) TryIntern(s string) (Handle[string], bool) {
	e, ok := in.tab.find(xxhash.Sum64String(s), func(x string) bool { return x == s })
	if !ok {
		in.stats.misses++
		return Handle[string]{}, false
	}
	in.stats.hits++
	e.retain()
	return Handle[string]{e}, true
}

// TryInternBytes performs a lookup for the string equal to b, without
// inserting, copying or converting b.
func (in *StringInterner) TryInternBytes(b []byte) (Handle[string], bool) {
	s := bytesToString(b)
	e, ok := in.tab.find(xxhash.Sum64(b), func(x string) bool { return x == s })
	if !ok {
		in.stats.misses++
		return Handle[string]{}, false
	}
	in.stats.hits++
	e.retain()
	return Handle[string]{e}, true
}

// Intern returns the canonical handle for s. Strings are immutable, so on a
// miss s itself is retained as the canonical allocation, never copied.
func (in *StringInterner) Intern(s string) Handle[string] {
	token := xxhash.Sum64String(s)
	if e, ok := in.tab.find(token, func(x string) bool { return x == s }); ok {
		in.stats.hits++
		e.retain()
		return Handle[string]{e}
	}
	in.stats.misses++
	in.stats.inserts++
	e := &box[string]{val: s, refs: 2}
	in.tab.insert(token, e)
	return Handle[string]{e}
}

// InternBytes returns the canonical handle for the string equal to b. Only
// the miss path copies b into a new string; hits are zero-copy.
func (in *StringInterner) InternBytes(b []byte) Handle[string] {
	token := xxhash.Sum64(b)
	s := bytesToString(b)
	if e, ok := in.tab.find(token, func(x string) bool { return x == s }); ok {
		in.stats.hits++
		e.retain()
		return Handle[string]{e}
	}
	in.stats.misses++
	in.stats.inserts++
	e := &box[string]{val: string(b), refs: 2}
	in.tab.insert(token, e)
	return Handle[string]{e}
}

// Compact purges every entry whose only remaining holder is the table itself
// and returns the number purged.
func (in *StringInterner) Compact() int {
	purged, _ := in.tab.compact()
	in.stats.evictions += uint64(purged)
	return purged
}

// Reset drops the table's share on every entry and clears the table.
func (in *StringInterner) Reset() { in.tab.reset() }

// Len returns the number of resident entries.
func (in *StringInterner) Len() int { return in.tab.len() }

// Stats returns a snapshot of the table's counters.
func (in *StringInterner) Stats() Stats { return in.stats.snapshot(in.tab.size()) }
