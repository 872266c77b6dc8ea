package u32set

import (
	"sort"
	"unsafe"

	"github.com/TomTonic/u32set/internal/assert"
)

// array16Header is the fixed-size prefix of an Array16 heap block:
//
//	[refcount: u32][count: u16][padding: u16][items: u16 x count]
//
// Items follow immediately after the header and are accessed via
// unsafe.Slice, the same "typed cast over a raw address" idiom the
// teacher uses for its art node variants.
type array16Header struct {
	refcount uint32
	count    uint16
	_        uint16
}

const array16HeaderSize = int(unsafe.Sizeof(array16Header{}))

func array16HeaderOf(p unsafe.Pointer) *array16Header {
	return (*array16Header)(p)
}

func array16Items(p unsafe.Pointer, count uint16) []uint16 {
	base := unsafe.Add(p, array16HeaderSize)
	return unsafe.Slice((*uint16)(base), int(count))
}

// buildArray16 allocates a fresh Array16 block holding rel (already
// relative ids, strictly ascending, all <= 65535, 1 <= len <= 1024).
func buildArray16(a Allocator, rel []uint32) (Handle, error) {
	assert.Assert(len(rel) >= 1 && len(rel) <= maxArrayItemCount, "buildArray16: bad count %d", len(rel))
	size := array16HeaderSize + len(rel)*2
	p, err := allocBlock(a, size)
	if err != nil {
		return Handle{}, err
	}
	hdr := array16HeaderOf(p)
	hdr.count = uint16(len(rel))
	items := array16Items(p, hdr.count)
	for i, v := range rel {
		assert.Assert(v <= array16Max, "buildArray16: value %d out of range", v)
		items[i] = uint16(v)
	}
	return handleFromPtr(kindArray16, p, false), nil
}

func array16Contains(h Handle, id uint32) bool {
	if id > array16Max {
		return false
	}
	p := h.ptr()
	hdr := array16HeaderOf(p)
	items := array16Items(p, hdr.count)
	target := uint16(id)
	_, found := sort.Find(len(items), func(i int) int {
		switch {
		case items[i] < target:
			return 1
		case items[i] > target:
			return -1
		default:
			return 0
		}
	})
	return found
}

func array16Count(h Handle) uint32 {
	return uint32(array16HeaderOf(h.ptr()).count)
}

// array16TryAdd implements spec.md §4.4's Array16 insertion path.
func array16TryAdd(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	p := h.ptr()
	hdr := array16HeaderOf(p)
	items := array16Items(p, hdr.count)

	var idx int
	if id <= array16Max {
		idx = sort.Search(len(items), func(i int) bool { return items[i] >= uint16(id) })
		if idx < len(items) && items[idx] == uint16(id) {
			return h, false, nil
		}
	} else {
		// id exceeds every possible Array16 item; it belongs past the end.
		idx = len(items)
	}

	count := uint32(len(items)) + 1
	localMax := id
	if len(items) > 0 && uint32(items[len(items)-1]) > localMax {
		localMax = uint32(items[len(items)-1])
	}
	target := choose(count, localMax)

	switch target {
	case kindBitSet:
		rel := make([]uint32, 0, count)
		for _, v := range items {
			rel = append(rel, uint32(v))
		}
		rel = insertSorted(rel, id)
		return buildAndWrap(buildBitSet, a, rel)
	case kindArray16:
		nh, err := allocArray16Spliced(a, items, id, idx)
		return nh, true, err
	case kindArray32:
		nh, err := allocArray32SplicedFromU16(a, items, id, idx)
		return nh, true, err
	default: // kindNode, or a small inline kind the chooser will never pick here
		before := &array16Reader{items: items[:idx]}
		after := &array16Reader{items: items[idx:]}
		newID := id
		r := newSequenceReader(before, &newID, after)
		nh, err := buildFromStreamReader(r, a)
		return nh, true, err
	}
}

func allocArray16Spliced(a Allocator, items []uint16, id uint32, idx int) (Handle, error) {
	size := array16HeaderSize + (len(items)+1)*2
	p, err := allocBlock(a, size)
	if err != nil {
		return Handle{}, err
	}
	hdr := array16HeaderOf(p)
	hdr.count = uint16(len(items) + 1)
	out := array16Items(p, hdr.count)
	copy(out[:idx], items[:idx])
	out[idx] = uint16(id)
	copy(out[idx+1:], items[idx:])
	return handleFromPtr(kindArray16, p, false), nil
}

func allocArray32SplicedFromU16(a Allocator, items []uint16, id uint32, idx int) (Handle, error) {
	size := array32HeaderSize + (len(items)+1)*4
	p, err := allocBlock(a, size)
	if err != nil {
		return Handle{}, err
	}
	hdr := array32HeaderOf(p)
	hdr.count = uint32(len(items) + 1)
	out := array32Items(p, hdr.count)
	for i := 0; i < idx; i++ {
		out[i] = uint32(items[i])
	}
	out[idx] = id
	for i := idx; i < len(items); i++ {
		out[i+1] = uint32(items[i])
	}
	return handleFromPtr(kindArray32, p, false), nil
}

// array16TryRemove implements spec.md §4.6's Array16 removal path.
func array16TryRemove(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	if id > array16Max {
		return h, false, nil
	}
	p := h.ptr()
	hdr := array16HeaderOf(p)
	items := array16Items(p, hdr.count)

	idx := sort.Search(len(items), func(i int) bool { return items[i] >= uint16(id) })
	if idx >= len(items) || items[idx] != uint16(id) {
		return h, false, nil
	}

	newCount := len(items) - 1
	if newCount <= 5 {
		rel := make([]uint32, 0, newCount)
		for i, v := range items {
			if i != idx {
				rel = append(rel, uint32(v))
			}
		}
		nh, err := buildFromSorted(rel, 0, a)
		return nh, true, err
	}

	size := array16HeaderSize + newCount*2
	np, err := allocBlock(a, size)
	if err != nil {
		return Handle{}, false, err
	}
	nhdr := array16HeaderOf(np)
	nhdr.count = uint16(newCount)
	out := array16Items(np, nhdr.count)
	copy(out[:idx], items[:idx])
	copy(out[idx:], items[idx+1:])
	return handleFromPtr(kindArray16, np, false), true, nil
}

func array16StreamReader(h Handle) StreamReader {
	p := h.ptr()
	hdr := array16HeaderOf(p)
	return &array16Reader{items: array16Items(p, hdr.count)}
}

type array16Reader struct {
	items []uint16
	pos   int
}

func (r *array16Reader) Read(target []uint32) int {
	n := 0
	for n < len(target) && r.pos < len(r.items) {
		target[n] = uint32(r.items[r.pos])
		n++
		r.pos++
	}
	return n
}

func insertSorted(ids []uint32, id uint32) []uint32 {
	idx := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[idx+1:], ids[idx:len(ids)-1])
	ids[idx] = id
	return ids
}

func buildAndWrap(build func(Allocator, []uint32) (Handle, error), a Allocator, rel []uint32) (Handle, bool, error) {
	h, err := build(a, rel)
	return h, true, err
}
