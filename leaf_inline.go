package u32set

import "github.com/TomTonic/u32set/internal/assert"

// Inline variants pack 0-4 ids directly into the 8-byte payload, no heap
// block, no refcount, no lifecycle cost (spec.md §3 payload encodings).

func buildInline0() Handle {
	return Empty()
}

func buildInline1(id uint32) Handle {
	return Handle{tag: uint8(kindInline1), payload: uint64(id)}
}

// buildInline2 packs a < b with a in the high 32 bits, b in the low 32
// bits (spec.md §3: "smaller in the high 32 bits").
func buildInline2(a, b uint32) Handle {
	assert.Assert(a < b, "buildInline2: ids must be strictly ascending")
	return Handle{tag: uint8(kindInline2), payload: uint64(a)<<32 | uint64(b)}
}

// buildInline3 packs id0 < id1 < id2, each <= inline3Max, as
// id0<<42 | id1<<21 | id2.
func buildInline3(id0, id1, id2 uint32) Handle {
	assert.Assert(id0 < id1 && id1 < id2, "buildInline3: ids must be strictly ascending")
	assert.Assert(id2 <= inline3Max, "buildInline3: id %d exceeds 2^21-1", id2)
	payload := uint64(id0)<<42 | uint64(id1)<<21 | uint64(id2)
	return Handle{tag: uint8(kindInline3), payload: payload}
}

// buildInline4 packs id0 < id1 < id2 < id3, each <= inline4Max, as a
// little-endian lane: id0 in the lowest 16 bits, id3 in the highest.
func buildInline4(id0, id1, id2, id3 uint32) Handle {
	assert.Assert(id0 < id1 && id1 < id2 && id2 < id3, "buildInline4: ids must be strictly ascending")
	assert.Assert(id3 <= inline4Max, "buildInline4: id %d exceeds 65535", id3)
	payload := uint64(id0) | uint64(id1)<<16 | uint64(id2)<<32 | uint64(id3)<<48
	return Handle{tag: uint8(kindInline4), payload: payload}
}

func inline1Get(h Handle) uint32 {
	return uint32(h.payload)
}

func inline2Get(h Handle) (uint32, uint32) {
	return uint32(h.payload >> 32), uint32(h.payload)
}

func inline3Get(h Handle) [3]uint32 {
	p := h.payload
	return [3]uint32{
		uint32(p>>42) & inline3Max,
		uint32(p>>21) & inline3Max,
		uint32(p) & inline3Max,
	}
}

func inline4Get(h Handle) [4]uint32 {
	p := h.payload
	return [4]uint32{
		uint32(p) & inline4Max,
		uint32(p>>16) & inline4Max,
		uint32(p>>32) & inline4Max,
		uint32(p>>48) & inline4Max,
	}
}

func inlineIDs(h Handle) []uint32 {
	switch h.kind() {
	case kindEmpty:
		return nil
	case kindInline1:
		return []uint32{inline1Get(h)}
	case kindInline2:
		a, b := inline2Get(h)
		return []uint32{a, b}
	case kindInline3:
		ids := inline3Get(h)
		return ids[:]
	case kindInline4:
		ids := inline4Get(h)
		return ids[:]
	default:
		assert.Assert(false, "inlineIDs: handle %v is not an inline kind", h.kind())
		return nil
	}
}

func inlineContains(h Handle, id uint32) bool {
	switch h.kind() {
	case kindEmpty:
		return false
	case kindInline1:
		return inline1Get(h) == id
	case kindInline2:
		a, b := inline2Get(h)
		return a == id || b == id
	case kindInline3:
		ids := inline3Get(h)
		return ids[0] == id || ids[1] == id || ids[2] == id
	case kindInline4:
		ids := inline4Get(h)
		// A single vectorized equality-any over the packed lane would do
		// four compares at once on hardware with SIMD byte/word compare;
		// scalar unrolling is functionally identical.
		return ids[0] == id || ids[1] == id || ids[2] == id || ids[3] == id
	default:
		return false
	}
}

func inlineCount(h Handle) uint32 {
	switch h.kind() {
	case kindEmpty:
		return 0
	case kindInline1:
		return 1
	case kindInline2:
		return 2
	case kindInline3:
		return 3
	case kindInline4:
		return 4
	default:
		return 0
	}
}

// inlineTryAdd handles Empty/Inline1-4 -> inline-or-leaf insertion
// (spec.md §4.4 "Inline -> inline or leaf"): unpack, binary-search the new
// id; if found, report unchanged, else materialize a sorted temporary and
// hand it to the leaf builder (which consults the chooser).
func inlineTryAdd(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	existing := inlineIDs(h)
	for _, v := range existing {
		if v == id {
			return h, false, nil
		}
	}
	rel := insertSorted(append([]uint32{}, existing...), id)
	nh, err := buildFromSorted(rel, 0, a)
	return nh, true, err
}

// inlineTryRemove handles inline removal (spec.md §4.6 "Inline"): pack the
// remaining ids into the smallest representation that fits.
func inlineTryRemove(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	existing := inlineIDs(h)
	idx := -1
	for i, v := range existing {
		if v == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return h, false, nil
	}
	rel := make([]uint32, 0, len(existing)-1)
	rel = append(rel, existing[:idx]...)
	rel = append(rel, existing[idx+1:]...)
	nh, err := buildFromSorted(rel, 0, a)
	return nh, true, err
}

type sliceReader struct {
	ids []uint32
	pos int
}

func (r *sliceReader) Read(target []uint32) int {
	n := copy(target, r.ids[r.pos:])
	r.pos += n
	return n
}

func inlineStreamReader(h Handle) StreamReader {
	return &sliceReader{ids: inlineIDs(h)}
}
