package u32set

import (
	"math/bits"
	"unsafe"

	"github.com/TomTonic/u32set/internal/assert"
)

// bitSetHeader is the fixed-size prefix of a BitSet heap block:
//
//	[refcount: u32][count: u32][bits: u64 x 64]
//
// bits covers the 4096-value window [0, bitSetWindow). This is the fixed
// leaf analogue of the teacher's bitfield256 (see bitfield.go), widened
// from 256 to 4096 bits and given its own count field.
type bitSetHeader struct {
	refcount uint32
	count    uint32
}

const bitSetHeaderSize = int(unsafe.Sizeof(bitSetHeader{}))
const bitSetBlockSize = bitSetHeaderSize + bitSetWords*8

func bitSetHeaderOf(p unsafe.Pointer) *bitSetHeader {
	return (*bitSetHeader)(p)
}

func bitSetWordsOf(p unsafe.Pointer) *[bitSetWords]uint64 {
	return (*[bitSetWords]uint64)(unsafe.Add(p, bitSetHeaderSize))
}

func bitSetGet(words *[bitSetWords]uint64, id uint32) bool {
	return words[id>>6]&(uint64(1)<<(id&63)) != 0
}

func bitSetSet(words *[bitSetWords]uint64, id uint32) {
	words[id>>6] |= uint64(1) << (id & 63)
}

func bitSetClear(words *[bitSetWords]uint64, id uint32) {
	words[id>>6] &^= uint64(1) << (id & 63)
}

// buildBitSet allocates a fresh BitSet block holding rel (relative ids,
// all < bitSetWindow, count in [bitSetMinCount, bitSetWindow]).
func buildBitSet(a Allocator, rel []uint32) (Handle, error) {
	assert.Assert(len(rel) >= 1, "buildBitSet: empty input")
	p, err := allocBlock(a, bitSetBlockSize)
	if err != nil {
		return Handle{}, err
	}
	hdr := bitSetHeaderOf(p)
	words := bitSetWordsOf(p)
	for _, v := range rel {
		assert.Assert(v < bitSetWindow, "buildBitSet: value %d out of window", v)
		bitSetSet(words, v)
	}
	hdr.count = uint32(len(rel))
	return handleFromPtr(kindBitSet, p, false), nil
}

func bitSetContains(h Handle, id uint32) bool {
	if id >= bitSetWindow {
		return false
	}
	return bitSetGet(bitSetWordsOf(h.ptr()), id)
}

func bitSetCount(h Handle) uint32 {
	return bitSetHeaderOf(h.ptr()).count
}

// bitSetTryAdd implements spec.md §4.4's BitSet insertion path.
func bitSetTryAdd(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	p := h.ptr()
	hdr := bitSetHeaderOf(p)
	words := bitSetWordsOf(p)

	if id < bitSetWindow {
		if bitSetGet(words, id) {
			return h, false, nil
		}
		if h.Immutable() {
			np, err := allocBlock(a, bitSetBlockSize)
			if err != nil {
				return Handle{}, false, err
			}
			nhdr := bitSetHeaderOf(np)
			nwords := bitSetWordsOf(np)
			*nwords = *words
			bitSetSet(nwords, id)
			nhdr.count = hdr.count + 1
			return handleFromPtr(kindBitSet, np, false), true, nil
		}
		bitSetSet(words, id)
		hdr.count++
		acquireBlockRef(p)
		return handleFromPtr(kindBitSet, p, false), true, nil
	}

	// id >= bitSetWindow: overflow this leaf's window. create-parent-and-add
	// is reserved for a Node's own slot overflow, where the new id is
	// guaranteed to land in a different slot of the wrapping node; here the
	// new id can still fall within the same (oversized) wrapping slot as
	// this leaf, which would recurse into the same overflow forever. Rebuild
	// from scratch instead (spec.md §4.4's other BitSet-overflow option):
	// buildFromSorted computes the minimal node level and partitions ids by
	// slot on its own, correctly routing the new id to a fresh slot.
	rel := make([]uint32, 0, hdr.count+1)
	streamBitSetInto(words, bitSetWindow, &rel) // bitSetWindow never matches a stored id, so nothing is skipped
	rel = insertSorted(rel, id)
	nh, err := buildFromSorted(rel, 0, a)
	return nh, true, err
}

// bitSetTryRemove implements spec.md §4.6's BitSet removal path.
func bitSetTryRemove(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	if id >= bitSetWindow {
		return h, false, nil
	}
	p := h.ptr()
	hdr := bitSetHeaderOf(p)
	words := bitSetWordsOf(p)
	if !bitSetGet(words, id) {
		return h, false, nil
	}

	newCount := hdr.count - 1
	if newCount <= 5 {
		rel := make([]uint32, 0, newCount)
		streamBitSetInto(words, id, &rel)
		nh, err := buildFromSorted(rel, 0, a)
		return nh, true, err
	}

	if h.Immutable() {
		np, err := allocBlock(a, bitSetBlockSize)
		if err != nil {
			return Handle{}, false, err
		}
		nhdr := bitSetHeaderOf(np)
		nwords := bitSetWordsOf(np)
		*nwords = *words
		bitSetClear(nwords, id)
		nhdr.count = newCount
		return handleFromPtr(kindBitSet, np, false), true, nil
	}
	bitSetClear(words, id)
	hdr.count = newCount
	acquireBlockRef(p)
	return handleFromPtr(kindBitSet, p, false), true, nil
}

// streamBitSetInto appends every set bit except skip to dst, ascending.
func streamBitSetInto(words *[bitSetWords]uint64, skip uint32, dst *[]uint32) {
	for wi := 0; wi < bitSetWords; wi++ {
		w := words[wi]
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			id := uint32(wi*64 + tz)
			w &= w - 1
			if id != skip {
				*dst = append(*dst, id)
			}
		}
	}
}

func bitSetStreamReader(h Handle) StreamReader {
	return &bitSetReader{words: bitSetWordsOf(h.ptr())}
}

type bitSetReader struct {
	words   *[bitSetWords]uint64
	wordIdx int
	cur     uint64
}

func (r *bitSetReader) Read(target []uint32) int {
	n := 0
	for n < len(target) {
		for r.cur == 0 {
			if r.wordIdx >= bitSetWords {
				return n
			}
			r.cur = r.words[r.wordIdx]
			r.wordIdx++
		}
		tz := bits.TrailingZeros64(r.cur)
		id := uint32((r.wordIdx-1)*64 + tz)
		r.cur &= r.cur - 1
		target[n] = id
		n++
	}
	return n
}
