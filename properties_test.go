package u32set

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleSets returns a range of handles built across every representation,
// so the universal properties below run over each kind at least once.
func sampleSets(t *testing.T, a Allocator) []Handle {
	t.Helper()
	var out []Handle

	h, err := Create(a, nil)
	require.NoError(t, err)
	out = append(out, h) // Empty

	h, err = Create(a, []uint32{42})
	require.NoError(t, err)
	out = append(out, h) // Inline1

	h, err = Create(a, []uint32{90, 112})
	require.NoError(t, err)
	out = append(out, h) // Inline2

	h, err = Create(a, []uint32{1, 2, 3})
	require.NoError(t, err)
	out = append(out, h) // Inline3

	h, err = Create(a, []uint32{1, 3, 5, 7})
	require.NoError(t, err)
	out = append(out, h) // Inline4

	ids16 := make([]uint32, 50)
	for i := range ids16 {
		ids16[i] = uint32(i * 2)
	}
	h, err = Create(a, ids16)
	require.NoError(t, err)
	out = append(out, h) // Array16

	ids32 := make([]uint32, 50)
	for i := range ids32 {
		ids32[i] = uint32(1<<20) + uint32(i*2)
	}
	h, err = Create(a, ids32)
	require.NoError(t, err)
	out = append(out, h) // Array32

	idsBits := make([]uint32, 0, 300)
	for i := uint32(0); i < 300; i++ {
		idsBits = append(idsBits, i)
	}
	h, err = Create(a, idsBits)
	require.NoError(t, err)
	out = append(out, h) // BitSet

	idsNode := make([]uint32, 0, 2000)
	for i := uint32(0); i < 2000; i++ {
		idsNode = append(idsNode, i*3)
	}
	h, err = Create(a, idsNode)
	require.NoError(t, err)
	out = append(out, h) // Node

	return out
}

func releaseAll(a Allocator, hs []Handle) {
	for _, h := range hs {
		Release(h, a)
	}
}

func TestPropertyEmptyContainsNothing(t *testing.T) {
	assert.False(t, Contains(Empty(), 0))
	assert.False(t, Contains(Empty(), 12345))
}

func TestPropertyAddThenContains(t *testing.T) {
	a := NewHeapAllocator()
	sets := sampleSets(t, a)
	defer releaseAll(a, sets)

	for _, t0 := range sets {
		for _, x := range []uint32{0, 1, 17, 5000, 1 << 20} {
			if Contains(t0, x) {
				continue
			}
			v, err := Add(t0, a, x)
			require.NoError(t, err)
			assert.True(t, Contains(v, x))
			for _, y := range []uint32{0, 1, 17, 5000, 1 << 20} {
				if y == x {
					continue
				}
				assert.Equal(t, Contains(t0, y), Contains(v, y))
			}
			Release(v, a)
		}
	}
}

func TestPropertyRemoveThenNotContains(t *testing.T) {
	a := NewHeapAllocator()
	sets := sampleSets(t, a)
	defer releaseAll(a, sets)

	for _, t0 := range sets {
		for _, x := range []uint32{0, 1, 17, 5000, 1 << 20} {
			if !Contains(t0, x) {
				continue
			}
			v, err := Remove(t0, a, x)
			require.NoError(t, err)
			assert.False(t, Contains(v, x))
			Release(v, a)
		}
	}
}

func TestPropertyCountMatchesMembership(t *testing.T) {
	a := NewHeapAllocator()
	sets := sampleSets(t, a)
	defer releaseAll(a, sets)

	for _, t0 := range sets {
		var want uint32
		ForEach(t0, func(uint32) bool {
			want++
			return true
		})
		assert.Equal(t, want, Count(t0))
	}
}

func TestPropertyIdempotence(t *testing.T) {
	a := NewHeapAllocator()
	sets := sampleSets(t, a)
	defer releaseAll(a, sets)

	for _, t0 := range sets {
		x := uint32(777)
		added, err := Add(t0, a, x)
		require.NoError(t, err)
		_, changed, err := TryAdd(added, a, x)
		require.NoError(t, err)
		assert.False(t, changed)

		removed, err := Remove(added, a, x)
		require.NoError(t, err)
		_, changed, err = TryRemove(removed, a, x)
		require.NoError(t, err)
		assert.False(t, changed)

		Release(removed, a)
		Release(added, a)
	}
}

func TestPropertyRoundTrip(t *testing.T) {
	a := NewHeapAllocator()
	sets := sampleSets(t, a)
	defer releaseAll(a, sets)

	for _, t0 := range sets {
		x := uint32(999999)
		if Contains(t0, x) {
			continue
		}
		added, err := Add(t0, a, x)
		require.NoError(t, err)
		roundTripped, err := Remove(added, a, x)
		require.NoError(t, err)
		assert.True(t, Equal(roundTripped, t0))
		Release(roundTripped, a)
		Release(added, a)
	}
}

func TestPropertyImmutabilitySplit(t *testing.T) {
	a := NewHeapAllocator()
	sets := sampleSets(t, a)
	defer releaseAll(a, sets)

	for _, t0 := range sets {
		x := uint32(123456)
		if Contains(t0, x) {
			continue
		}
		u := MakeImmutable(Acquire(t0))
		v, err := Add(u, a, x)
		require.NoError(t, err)
		assert.False(t, Contains(u, x))
		assert.True(t, Contains(v, x))
		Release(v, a)
		Release(u, a)
	}
}

// TestPropertyRefcountDiscipline covers universal property 8 across every
// representation sampled by sampleSets.
func TestPropertyRefcountDiscipline(t *testing.T) {
	a := NewHeapAllocator()
	start := a.OutstandingBlocks()

	sets := sampleSets(t, a)
	for _, t0 := range sets {
		acquired := Acquire(t0)
		frozen := MakeImmutable(acquired)
		added, err := Add(frozen, a, 31337)
		require.NoError(t, err)
		removed, err := Remove(added, a, 31337)
		require.NoError(t, err)

		Release(removed, a)
		Release(added, a)
		Release(frozen, a)
	}
	releaseAll(a, sets)

	assert.Equal(t, start, a.OutstandingBlocks())
}

func TestPropertyStreamReaderFidelity(t *testing.T) {
	a := NewHeapAllocator()
	sets := sampleSets(t, a)
	defer releaseAll(a, sets)

	for _, t0 := range sets {
		r := NewStreamReader(t0)
		var got []uint32
		buf := make([]uint32, 37)
		for {
			n := r.Read(buf)
			if n == 0 {
				break
			}
			got = append(got, buf[:n]...)
		}
		assert.Equal(t, Count(t0), uint32(len(got)))
		for i := 1; i < len(got); i++ {
			assert.Less(t, got[i-1], got[i])
		}
		for _, id := range got {
			assert.True(t, Contains(t0, id))
		}
	}
}

func TestPropertyRepresentationConvergence(t *testing.T) {
	a := NewHeapAllocator()
	cases := [][]uint32{
		{},
		{42},
		{90, 112},
		{1, 2, 3},
		{1, 3, 5, 7},
		func() []uint32 {
			ids := make([]uint32, 300)
			for i := range ids {
				ids[i] = uint32(i)
			}
			return ids
		}(),
		func() []uint32 {
			ids := make([]uint32, 2000)
			for i := range ids {
				ids[i] = uint32(i * 3)
			}
			return ids
		}(),
	}
	for _, ids := range cases {
		h, err := Create(a, ids)
		require.NoError(t, err)
		var maxID uint32
		if len(ids) > 0 {
			maxID = ids[len(ids)-1]
		}
		assert.Equal(t, choose(uint32(len(ids)), maxID), h.kind())
		Release(h, a)
	}
}
