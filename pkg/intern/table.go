package intern

// entry is the table's view of a refcounted box. Both box and sharedBox
// implement it, which is what lets one table core back all six interner
// flavors.
type entry[T any] interface {
	value() T
	retain()
	release() int64
	count() int64
}

// table is the deduplicating core: a bucketed hash table keyed by a caller
// supplied token, with exact equality confirmed inside the bucket. Tokens
// may collide, entries never do. The table owns one reference-count share
// per resident entry.
type table[T any, E entry[T]] struct {
	buckets map[uint64][]E
	live    int

	sz     uint64
	szFunc func(T) uint64
}

func newTable[T any, E entry[T]](szFunc func(T) uint64) *table[T, E] {
	return &table[T, E]{
		buckets: make(map[uint64][]E),
		szFunc:  szFunc,
	}
}

// find returns the resident entry for token whose value satisfies eq. It
// does not touch reference counts.
func (t *table[T, E]) find(token uint64, eq func(T) bool) (E, bool) {
	for _, e := range t.buckets[token] {
		if eq(e.value()) {
			return e, true
		}
	}
	var zero E
	return zero, false
}

func (t *table[T, E]) insert(token uint64, e E) {
	t.buckets[token] = append(t.buckets[token], e)
	t.live++
	t.sz += t.szFunc(e.value())
}

// compact drops every entry whose only remaining holder is the table itself,
// releasing the table's share so the count lands on zero. When anything was
// purged the bucket map is rebuilt at the surviving size; Go maps never
// shrink in place.
func (t *table[T, E]) compact() (purged int, freed uint64) {
	for token, bucket := range t.buckets {
		keep := bucket[:0]
		for _, e := range bucket {
			if e.count() > 1 {
				keep = append(keep, e)
				continue
			}
			freed += t.szFunc(e.value())
			e.release()
			purged++
		}
		if len(keep) == 0 {
			delete(t.buckets, token)
		} else {
			t.buckets[token] = keep
		}
	}

	if purged == 0 {
		return
	}

	t.live -= purged
	t.sz -= freed

	rebuilt := make(map[uint64][]E, len(t.buckets))
	for token, bucket := range t.buckets {
		rebuilt[token] = bucket
	}
	t.buckets = rebuilt
	return
}

// reset releases the table's share on every entry and clears the table.
// Entries still held externally stay alive through their external handles.
func (t *table[T, E]) reset() {
	for _, bucket := range t.buckets {
		for _, e := range bucket {
			e.release()
		}
	}
	clear(t.buckets)
	t.live = 0
	t.sz = 0
}

func (t *table[T, E]) len() int { return t.live }

func (t *table[T, E]) size() uint64 { return t.sz }
