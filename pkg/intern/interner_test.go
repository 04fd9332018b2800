package intern

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestInternDedup(t *testing.T) {
	in := New[int]()

	x := in.Intern(42)
	y := in.Intern(42)

	require.True(t, x.Same(y))
	require.Equal(t, 42, x.Value())
	require.Equal(t, 1, in.Len())
	require.Equal(t, int64(3), x.Refs()) // table + x + y
}

func TestTryInternMissThenHit(t *testing.T) {
	in := New[string]()

	_, ok := in.TryIntern("abc123")
	require.False(t, ok)

	h := in.Intern("abc123")

	got, ok := in.TryIntern("abc123")
	require.True(t, ok)
	require.True(t, h.Same(got))
}

func TestReclamation(t *testing.T) {
	in := New[int]()

	x := in.Intern(42)
	y := in.Intern(1337)
	z := y.Clone()

	x.Release()
	y.Release()

	require.Equal(t, 1, in.Compact())

	_, ok := in.TryIntern(42)
	require.False(t, ok)

	got, ok := in.TryIntern(1337)
	require.True(t, ok)
	require.True(t, z.Same(got))
	got.Release()
	z.Release()
}

func TestCompactIdempotent(t *testing.T) {
	in := New[int]()

	h := in.Intern(1)
	in.Intern(2).Release()

	require.Equal(t, 1, in.Compact())
	require.Equal(t, 0, in.Compact())
	require.Equal(t, 1, in.Len())

	got, ok := in.TryIntern(1)
	require.True(t, ok)
	require.True(t, h.Same(got))
}

func TestCompactEmpty(t *testing.T) {
	in := New[int]()
	require.Equal(t, 0, in.Compact())
	require.Equal(t, 0, in.Len())
}

func TestNonInterference(t *testing.T) {
	in := New[int]()

	x := in.Intern(42)
	in.Intern(1337).Release()

	require.Equal(t, 1, in.Compact())

	got, ok := in.TryIntern(42)
	require.True(t, ok)
	require.True(t, x.Same(got))
	require.Equal(t, 42, got.Value())
}

func TestSingleInsert(t *testing.T) {
	in := New[string]()

	for i := 0; i < 100; i++ {
		in.Intern("repeated")
	}

	require.Equal(t, 1, in.Len())
	stats := in.Stats()
	require.Equal(t, uint64(1), stats.Inserts)
	require.Equal(t, uint64(99), stats.Hits)
	require.Equal(t, uint64(1), stats.Misses)
}

func TestStats(t *testing.T) {
	in := New[int]()

	_, ok := in.TryIntern(1)
	require.False(t, ok)

	in.Intern(1)
	in.Intern(1)
	in.Intern(2).Release()
	in.Compact()

	require.Equal(t, Stats{
		Hits:      1,
		Misses:    3, // failed TryIntern plus the two insert paths
		Inserts:   2,
		Evictions: 1,
		DataBytes: 8,
	}, in.Stats())
}

func TestResetKeepsExternalHandles(t *testing.T) {
	in := New[int]()

	h := in.Intern(42)
	in.Reset()

	require.Equal(t, 0, in.Len())
	require.Equal(t, int64(1), h.Refs())
	require.Equal(t, 42, h.Value())

	_, ok := in.TryIntern(42)
	require.False(t, ok)

	// re-interning after reset creates a fresh canonical allocation
	fresh := in.Intern(42)
	require.False(t, h.Same(fresh))

	h.Release()
	fresh.Release()
}

func TestHandleMisusePanics(t *testing.T) {
	in := New[int]()

	h := in.Intern(42)
	in.Reset()
	h.Release()

	require.Panics(t, func() { h.Release() })
	require.Panics(t, func() { h.Clone() })
}

func TestStructKeys(t *testing.T) {
	type key struct {
		name string
		id   uint64
	}

	in := New[key]()

	a := in.Intern(key{name: "foo", id: 1})
	b := in.Intern(key{name: "foo", id: 1})
	c := in.Intern(key{name: "foo", id: 2})

	require.True(t, a.Same(b))
	require.False(t, a.Same(c))
	require.Equal(t, 2, in.Len())
}

func TestTableCollision(t *testing.T) {
	tab := newTable[string, *box[string]](func(s string) uint64 { return uint64(len(s)) })

	a := &box[string]{val: "held", refs: 2}
	b := &box[string]{val: "stale", refs: 1}
	tab.insert(42, a)
	tab.insert(42, b)

	e, ok := tab.find(42, func(x string) bool { return x == "stale" })
	require.True(t, ok)
	require.Equal(t, b, e)

	_, ok = tab.find(42, func(x string) bool { return x == "missing" })
	require.False(t, ok)

	purged, freed := tab.compact()
	require.Equal(t, 1, purged)
	require.Equal(t, uint64(5), freed)
	require.Equal(t, 1, tab.len())

	e, ok = tab.find(42, func(x string) bool { return x == "held" })
	require.True(t, ok)
	require.Equal(t, a, e)
}

func BenchmarkIntern(b *testing.B) {
	const corpusSize = 1000

	corpus := make([]string, corpusSize)
	for i := range corpus {
		corpus[i] = uuid.NewString()
	}

	b.Run("hit", func(b *testing.B) {
		in := NewString()
		for _, s := range corpus {
			in.Intern(s)
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			in.Intern(corpus[i%corpusSize]).Release()
		}
	})

	b.Run("miss", func(b *testing.B) {
		in := NewString()
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			in.Intern(fmt.Sprintf("key-%d", i))
		}
	})

	b.Run("try", func(b *testing.B) {
		in := NewString()
		for _, s := range corpus {
			in.Intern(s)
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			h, _ := in.TryIntern(corpus[i%corpusSize])
			h.Release()
		}
	})

	b.Run("shared-hit", func(b *testing.B) {
		in := NewSharedString()
		for _, s := range corpus {
			in.Intern(s)
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			in.Intern(corpus[i%corpusSize]).Release()
		}
	})
}

func BenchmarkCompact(b *testing.B) {
	in := NewString()
	for i := 0; i < 10000; i++ {
		h := in.Intern(uuid.NewString())
		if i%2 == 0 {
			h.Release() // half the corpus is purgeable
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		in.Compact()
	}
}
