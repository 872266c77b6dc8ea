package u32set

import (
	"sort"

	"github.com/TomTonic/u32set/internal/assert"
)

// buildFromSorted implements spec.md §4.7 form 1: build directly from a
// sorted slice of absolute ids, offset subtracted so leaves see 0-based
// relative ids. It is also the workhorse every leaf-to-Node promotion
// (insert/remove rebuild paths) funnels through.
func buildFromSorted(ids []uint32, offset uint64, a Allocator) (Handle, error) {
	if len(ids) == 0 {
		return Empty(), nil
	}
	assertAscending(ids)

	maxRel := uint32(uint64(ids[len(ids)-1]) - offset)
	k := choose(uint32(len(ids)), maxRel)

	switch k {
	case kindEmpty:
		return Empty(), nil
	case kindInline1:
		return buildInline1(relAt(ids, offset, 0)), nil
	case kindInline2:
		return buildInline2(relAt(ids, offset, 0), relAt(ids, offset, 1)), nil
	case kindInline3:
		return buildInline3(relAt(ids, offset, 0), relAt(ids, offset, 1), relAt(ids, offset, 2)), nil
	case kindInline4:
		return buildInline4(relAt(ids, offset, 0), relAt(ids, offset, 1), relAt(ids, offset, 2), relAt(ids, offset, 3)), nil
	case kindArray16:
		return buildArray16(a, relSlice(ids, offset))
	case kindArray32:
		return buildArray32(a, relSlice(ids, offset))
	case kindBitSet:
		return buildBitSet(a, relSlice(ids, offset))
	case kindNode:
		return buildNodeFromSorted(ids, offset, a, maxRel)
	default:
		assert.Assert(false, "buildFromSorted: chooser returned unknown kind %v", k)
		return Handle{}, nil
	}
}

func relAt(ids []uint32, offset uint64, i int) uint32 {
	return uint32(uint64(ids[i]) - offset)
}

func relSlice(ids []uint32, offset uint64) []uint32 {
	out := make([]uint32, len(ids))
	for i, v := range ids {
		out[i] = uint32(uint64(v) - offset)
	}
	return out
}

func assertAscending(ids []uint32) {
	if !assert.Enabled {
		return
	}
	for i := 1; i < len(ids); i++ {
		assert.Assert(ids[i] > ids[i-1], "ids not strictly ascending at index %d", i)
	}
}

// buildNodeFromSorted partitions ids (absolute) by slot boundaries of the
// minimal level whose width covers maxRel, and recursively builds each
// non-empty child.
func buildNodeFromSorted(ids []uint32, offset uint64, a Allocator, maxRel uint32) (Handle, error) {
	var level uint8
	for level = 0; level <= maxLevel; level++ {
		if uint64(maxRel) < nodeFanout*width(level) {
			break
		}
	}
	assert.Assert(level <= maxLevel, "buildNodeFromSorted: no level covers maxRel %d", maxRel)

	w := width(level)
	p, err := allocNode(a, level)
	if err != nil {
		return Handle{}, err
	}

	total := uint32(0)
	start := 0
	for slot := 0; slot < nodeFanout && start < len(ids); slot++ {
		slotMax := offset + uint64(slot+1)*w
		end := start + sort.Search(len(ids)-start, func(i int) bool {
			return uint64(ids[start+i]) >= slotMax
		})
		if end == start {
			continue
		}
		childOffset := offset + uint64(slot)*w
		child, err := buildFromSorted(ids[start:end], childOffset, a)
		if err != nil {
			return Handle{}, err
		}
		nodeSetChild(p, slot, child)
		total += uint32(end - start)
		start = end
	}
	nodeHeaderOf(p).totalCount = total

	return handleFromPtr(kindNode, p, false), nil
}

// buildFromStreamReader implements spec.md §4.7 form 2: drain a
// StreamReader and delegate to buildFromSorted. In a systems-language
// implementation this drains into a small fixed scratch buffer to avoid
// heap pressure; Go's growable slices make that distinction an
// implementation detail rather than an observable one, so both build
// entry points share one algorithm here.
func buildFromStreamReader(r StreamReader, a Allocator) (Handle, error) {
	buf := make([]uint32, 0, buildScratchSize)
	tmp := make([]uint32, buildScratchSize)
	for {
		n := r.Read(tmp)
		if n == 0 {
			break
		}
		buf = append(buf, tmp[:n]...)
	}
	return buildFromSorted(buf, 0, a)
}
