package frozen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/symcache/hashtable"
	"github.com/hupe1980/symcache/internal/mem"
	"github.com/hupe1980/symcache/resource"
	"github.com/hupe1980/symcache/testutil"
)

func exampleTable(t testing.TB) *hashtable.Table {
	t.Helper()
	tbl, err := hashtable.New()
	require.NoError(t, err)
	require.NoError(t, tbl.Insert("alpha", "C:\\libs\\foo.lib\nC:\\libs\\bar.lib"))
	require.NoError(t, tbl.Insert("beta", `C:\libs\foo.lib`))
	_, err = tbl.GetOrInsert("orphan")
	require.NoError(t, err)
	return tbl
}

func TestFreeze_Example(t *testing.T) {
	tbl := exampleTable(t)

	m, err := Freeze(tbl)
	require.NoError(t, err)
	defer m.Release()

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, tbl.BucketCount(), m.BucketCount())
	assert.Equal(t, Size(tbl), m.Size())
	assert.Equal(t, mem.Addr(m.Bytes()), m.Base())

	v, ok := m.Value("alpha")
	assert.True(t, ok)
	assert.Equal(t, "C:\\libs\\foo.lib\nC:\\libs\\bar.lib", v)

	e, ok := m.Find("orphan")
	require.True(t, ok)
	assert.False(t, e.HasValue)
	_, ok = m.Value("orphan")
	assert.False(t, ok)

	_, ok = m.Find("gamma")
	assert.False(t, ok)
}

func TestFreeze_ExactSize(t *testing.T) {
	tbl := exampleTable(t)
	// 4 bucket headers, 3 element headers, "alpha\0" + value, "beta\0" + value, "orphan\0".
	want := 4*BucketHeaderSize + 3*ElementHeaderSize +
		len("alpha") + 1 + len("C:\\libs\\foo.lib\nC:\\libs\\bar.lib") + 1 +
		len("beta") + 1 + len(`C:\libs\foo.lib`) + 1 +
		len("orphan") + 1
	assert.Equal(t, want, Size(tbl))
}

func TestFreeze_Layout(t *testing.T) {
	tbl := exampleTable(t)
	m, err := Freeze(tbl)
	require.NoError(t, err)

	buf := m.Bytes()
	next := uint64(elementsStart(m.BucketCount()))
	for i := 0; i < m.BucketCount(); i++ {
		h := readBucket(buf, i)
		assert.Equal(t, uint32(tbl.BucketLen(i)), h.size)
		assert.Equal(t, h.size, h.cap)
		assert.Equal(t, m.Base()+next, h.data, "bucket %d points at its slice", i)
		next += uint64(h.size) * ElementHeaderSize
	}

	// Every key/value field is either 0 or inside the string area.
	strStart := m.Base() + uint64(stringsStart(m.BucketCount(), m.Len()))
	end := m.Base() + uint64(m.Size())
	for _, off := range m.Slots()[m.BucketCount():] {
		addr := le.Uint64(buf[off:])
		if addr == 0 {
			continue
		}
		assert.GreaterOrEqual(t, addr, strStart)
		assert.Less(t, addr, end)
	}
}

func TestFreeze_RoundTripRandom(t *testing.T) {
	rng := testutil.NewRNG(4711)
	tbl, err := hashtable.New()
	require.NoError(t, err)

	syms := rng.Symbols(3000)
	for i, s := range syms {
		switch i % 5 {
		case 0:
			_, err = tbl.GetOrInsert(s)
		default:
			err = tbl.Insert(s, rng.LibraryPath())
		}
		require.NoError(t, err)
	}
	for _, i := range rng.Perm(len(syms))[:500] {
		tbl.Remove(syms[i])
	}

	m, err := Freeze(tbl)
	require.NoError(t, err)
	defer m.Release()

	assertSameContent(t, tbl, m)
	for _, s := range rng.Symbols(100) {
		_, want := tbl.Find(s)
		_, got := m.Find(s)
		assert.Equal(t, want, got)
	}
}

func TestFreeze_Allocators(t *testing.T) {
	allocs := map[string]mem.Allocator{
		"heap":    mem.Heap{},
		"aligned": mem.Aligned{},
		"mmap":    mem.NewMmap(),
	}
	for name, a := range allocs {
		t.Run(name, func(t *testing.T) {
			m, err := Freeze(exampleTable(t), WithAllocator(a))
			require.NoError(t, err)
			v, ok := m.Value("beta")
			assert.True(t, ok)
			assert.Equal(t, `C:\libs\foo.lib`, v)
			m.Release()
		})
	}
}

func TestFreeze_AllocationFailure(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
	m, err := Freeze(exampleTable(t), WithAllocator(mem.NewBudgeted(nil, rc)))
	assert.ErrorIs(t, err, mem.ErrAllocationFailed)
	assert.Nil(t, m)
	assert.Zero(t, rc.MemoryUsage())
}

func TestFreeze_NoBuckets(t *testing.T) {
	tbl := exampleTable(t)
	tbl.Free()
	_, err := Freeze(tbl)
	assert.ErrorIs(t, err, ErrNoBuckets)
}

func TestFreeze_EmptyTable(t *testing.T) {
	tbl, err := hashtable.New()
	require.NoError(t, err)

	m, err := Freeze(tbl)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 4*BucketHeaderSize, m.Size())
	_, ok := m.Find("")
	assert.False(t, ok)

	adopted, err := Adopt(m.Bytes(), m.BucketCount(), m.Len())
	require.NoError(t, err)
	assert.Equal(t, 0, adopted.Len())
}

func TestSlots(t *testing.T) {
	m, err := Freeze(exampleTable(t))
	require.NoError(t, err)

	slots := m.Slots()
	require.Len(t, slots, m.SlotCount())
	assert.Equal(t, 4+2*3, len(slots))

	for i := 0; i < 4; i++ {
		assert.Equal(t, uint64(i*BucketHeaderSize), slots[i])
	}
	for i := 0; i < 3; i++ {
		off := uint64(elementsStart(4) + i*ElementHeaderSize)
		assert.Equal(t, off, slots[4+2*i])
		assert.Equal(t, off+8, slots[4+2*i+1])
	}
}

func TestRelease(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	m, err := Freeze(exampleTable(t), WithAllocator(mem.NewBudgeted(nil, rc)))
	require.NoError(t, err)
	assert.Equal(t, int64(m.Size()), rc.MemoryUsage())

	m.Release()
	m.Release()
	assert.Zero(t, rc.MemoryUsage())
	assert.Equal(t, 0, m.Len())
	_, ok := m.Find("alpha")
	assert.False(t, ok)
}

func TestAdopt_CopyAndRebase(t *testing.T) {
	m, err := Freeze(exampleTable(t))
	require.NoError(t, err)

	dst := make([]byte, m.Size())
	copy(dst, m.Bytes())
	newBase := mem.Addr(dst)
	for _, off := range m.Slots() {
		if v := le.Uint64(dst[off:]); v != 0 {
			le.PutUint64(dst[off:], v-m.Base()+newBase)
		}
	}

	adopted, err := Adopt(dst, m.BucketCount(), m.Len())
	require.NoError(t, err)

	m.Range(func(e Entry) bool {
		got, ok := adopted.Find(e.Key)
		assert.True(t, ok, e.Key)
		assert.Equal(t, e, got)
		return true
	})
}

func TestAdopt_Invalid(t *testing.T) {
	fresh := func(t *testing.T) (*Map, []byte) {
		m, err := Freeze(exampleTable(t))
		require.NoError(t, err)
		// Adopting the original buffer is valid because the base is unchanged.
		buf := make([]byte, m.Size())
		copy(buf, m.Bytes())
		return m, buf
	}

	tests := []struct {
		name   string
		mutate func(m *Map, buf []byte) (buckets, elements int, out []byte)
	}{
		{"no buckets", func(m *Map, buf []byte) (int, int, []byte) {
			return 0, m.Len(), m.Bytes()
		}},
		{"short buffer", func(m *Map, buf []byte) (int, int, []byte) {
			return m.BucketCount(), m.Len(), m.Bytes()[:20]
		}},
		{"element count mismatch", func(m *Map, buf []byte) (int, int, []byte) {
			return m.BucketCount(), m.Len() - 1, m.Bytes()
		}},
		{"stale base", func(m *Map, buf []byte) (int, int, []byte) {
			return m.BucketCount(), m.Len(), buf
		}},
		{"size cap mismatch", func(m *Map, _ []byte) (int, int, []byte) {
			b := m.Bytes()
			le.PutUint32(b[12:], le.Uint32(b[12:])+1)
			return m.BucketCount(), m.Len(), b
		}},
		{"unterminated string", func(m *Map, _ []byte) (int, int, []byte) {
			b := m.Bytes()
			b[len(b)-1] = 'x'
			return m.BucketCount(), m.Len(), b
		}},
		{"key points at headers", func(m *Map, _ []byte) (int, int, []byte) {
			b := m.Bytes()
			le.PutUint64(b[elementsStart(m.BucketCount()):], m.Base())
			return m.BucketCount(), m.Len(), b
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, buf := fresh(t)
			bc, ec, b := tt.mutate(m, buf)
			_, err := Adopt(b, bc, ec)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func assertSameContent(t *testing.T, tbl *hashtable.Table, m *Map) {
	t.Helper()
	require.Equal(t, tbl.Len(), m.Len())
	tbl.Range(func(e *hashtable.Element) bool {
		got, ok := m.Find(e.Key())
		require.True(t, ok, e.Key())
		v, has := e.Value()
		assert.Equal(t, has, got.HasValue, e.Key())
		assert.Equal(t, v, got.Value, e.Key())
		return true
	})
}

func BenchmarkFreeze(b *testing.B) {
	rng := testutil.NewRNG(4711)
	tbl, _ := hashtable.New()
	for _, s := range rng.Symbols(10000) {
		_ = tbl.Insert(s, rng.LibraryPath())
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m, _ := Freeze(tbl)
		m.Release()
	}
}

func BenchmarkFind(b *testing.B) {
	rng := testutil.NewRNG(4711)
	tbl, _ := hashtable.New()
	syms := rng.Symbols(10000)
	for _, s := range syms {
		_ = tbl.Insert(s, rng.LibraryPath())
	}
	m, _ := Freeze(tbl)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Value(syms[i%len(syms)])
	}
}
