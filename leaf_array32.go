package u32set

import (
	"sort"
	"unsafe"

	"github.com/TomTonic/u32set/internal/assert"
)

// array32Header is the fixed-size prefix of an Array32 heap block:
//
//	[refcount: u32][count: u32][items: u32 x count]
type array32Header struct {
	refcount uint32
	count    uint32
}

const array32HeaderSize = int(unsafe.Sizeof(array32Header{}))

func array32HeaderOf(p unsafe.Pointer) *array32Header {
	return (*array32Header)(p)
}

func array32Items(p unsafe.Pointer, count uint32) []uint32 {
	base := unsafe.Add(p, array32HeaderSize)
	return unsafe.Slice((*uint32)(base), int(count))
}

func buildArray32(a Allocator, rel []uint32) (Handle, error) {
	assert.Assert(len(rel) >= 1 && len(rel) <= maxArrayItemCount, "buildArray32: bad count %d", len(rel))
	size := array32HeaderSize + len(rel)*4
	p, err := allocBlock(a, size)
	if err != nil {
		return Handle{}, err
	}
	hdr := array32HeaderOf(p)
	hdr.count = uint32(len(rel))
	copy(array32Items(p, hdr.count), rel)
	return handleFromPtr(kindArray32, p, false), nil
}

func array32Contains(h Handle, id uint32) bool {
	p := h.ptr()
	hdr := array32HeaderOf(p)
	items := array32Items(p, hdr.count)
	_, found := sort.Find(len(items), func(i int) int {
		switch {
		case items[i] < id:
			return 1
		case items[i] > id:
			return -1
		default:
			return 0
		}
	})
	return found
}

func array32Count(h Handle) uint32 {
	return array32HeaderOf(h.ptr()).count
}

// array32TryAdd implements spec.md §4.4's Array32 insertion path: analogous
// to Array16 but without widening cases (everything here already fits u32).
func array32TryAdd(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	p := h.ptr()
	hdr := array32HeaderOf(p)
	items := array32Items(p, hdr.count)

	idx := sort.Search(len(items), func(i int) bool { return items[i] >= id })
	if idx < len(items) && items[idx] == id {
		return h, false, nil
	}

	count := uint32(len(items)) + 1
	localMax := id
	if len(items) > 0 && items[len(items)-1] > localMax {
		localMax = items[len(items)-1]
	}
	target := choose(count, localMax)

	switch target {
	case kindBitSet:
		rel := append(append([]uint32{}, items[:idx]...), id)
		rel = append(rel, items[idx:]...)
		return buildAndWrap(buildBitSet, a, rel)
	case kindArray32:
		size := array32HeaderSize + int(count)*4
		np, err := allocBlock(a, size)
		if err != nil {
			return Handle{}, false, err
		}
		nhdr := array32HeaderOf(np)
		nhdr.count = count
		out := array32Items(np, count)
		copy(out[:idx], items[:idx])
		out[idx] = id
		copy(out[idx+1:], items[idx:])
		return handleFromPtr(kindArray32, np, false), true, nil
	default: // kindNode, or kindArray16 once removals have left every item <= array16Max
		before := &array32Reader{items: items[:idx]}
		after := &array32Reader{items: items[idx:]}
		newID := id
		r := newSequenceReader(before, &newID, after)
		nh, err := buildFromStreamReader(r, a)
		return nh, true, err
	}
}

// array32TryRemove implements spec.md §4.6's Array32 removal path.
func array32TryRemove(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	p := h.ptr()
	hdr := array32HeaderOf(p)
	items := array32Items(p, hdr.count)

	idx := sort.Search(len(items), func(i int) bool { return items[i] >= id })
	if idx >= len(items) || items[idx] != id {
		return h, false, nil
	}

	newCount := len(items) - 1
	if newCount <= 5 {
		rel := make([]uint32, 0, newCount)
		rel = append(rel, items[:idx]...)
		rel = append(rel, items[idx+1:]...)
		nh, err := buildFromSorted(rel, 0, a)
		return nh, true, err
	}

	size := array32HeaderSize + newCount*4
	np, err := allocBlock(a, size)
	if err != nil {
		return Handle{}, false, err
	}
	nhdr := array32HeaderOf(np)
	nhdr.count = uint32(newCount)
	out := array32Items(np, nhdr.count)
	copy(out[:idx], items[:idx])
	copy(out[idx:], items[idx+1:])
	return handleFromPtr(kindArray32, np, false), true, nil
}

func array32StreamReader(h Handle) StreamReader {
	p := h.ptr()
	hdr := array32HeaderOf(p)
	return &array32Reader{items: array32Items(p, hdr.count)}
}

type array32Reader struct {
	items []uint32
	pos   int
}

func (r *array32Reader) Read(target []uint32) int {
	n := copy(target, r.items[r.pos:])
	r.pos += n
	return n
}
