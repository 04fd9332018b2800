// Package intern provides reference-counted interning tables: given a value,
// an interner returns a shared handle to a single canonical copy of that
// value, so structurally equal values collapse to one allocation and pointer
// identity can replace deep equality.
//
// Six table flavors cover three key shapes in two ownership models:
//
//	New[T]()        NewSlice[T]()        NewString()
//	NewShared[T]()  NewSharedSlice[T]()  NewSharedString()
//
// The plain flavors keep plain reference counts and belong to a single
// ownership domain. The Shared flavors keep atomic counts, so handles taken
// out of them may be cloned and released from any goroutine; the tables
// themselves still require external exclusive access for Intern, Compact and
// Reset, and shared (read) access suffices for TryIntern.
//
// Nothing is reclaimed automatically. An entry leaves a table only during an
// explicit Compact call, and only if at that moment the table's own
// membership share is its last remaining reference.
package intern

import "unsafe"

// Stats is a point-in-time snapshot of a table's cumulative counters.
type Stats struct {
	// Hits counts lookups that found a resident entry.
	Hits uint64
	// Misses counts lookups that found nothing.
	Misses uint64
	// Inserts counts entries that became canonical.
	Inserts uint64
	// Evictions counts entries purged by Compact.
	Evictions uint64
	// DataBytes is the resident size of the interned data itself, excluding
	// table overhead.
	DataBytes uint64
}

// counts backs the single-domain tables. The cross-domain tables use
// sharedCounts so TryIntern stays race-free under shared access.
type counts struct {
	hits      uint64
	misses    uint64
	inserts   uint64
	evictions uint64
}

func (c *counts) snapshot(dataBytes uint64) Stats {
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Inserts:   c.inserts,
		Evictions: c.evictions,
		DataBytes: dataBytes,
	}
}

// bytesToString converts a byte slice to a string without copying. The
// result is only valid while b is not mutated and must not outlive the
// lookup it serves.
func bytesToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
