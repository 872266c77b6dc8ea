package u32set

import (
	"math/bits"
	"sync/atomic"
	"unsafe"

	"github.com/TomTonic/u32set/internal/assert"
)

// nodeHeader is the fixed 152-byte layout of a trie Node block:
//
//	[level: u8, refcount: u24][totalCount: u32][childTags: u8 x 16][childPayloads: u64 x 16]
//
// level and refcount share one uint32 word (level in the low byte,
// refcount in the upper 24 bits) so a single atomic op can bump the
// refcount without disturbing level, which never changes after
// construction. This mirrors the teacher's structure-of-arrays child
// layout (tag bytes, then a payload table) in art/node_types.go, adapted
// from ART's variable-arity byte-radix nodes to this trie's fixed 16-way,
// level-indexed children.
type nodeHeader struct {
	levelAndRefcount uint32
	totalCount       uint32
	childTags        [nodeFanout]uint8
	childPayloads    [nodeFanout]uint64
}

const nodeBlockSize = int(unsafe.Sizeof(nodeHeader{}))

func init() {
	assert.Assert(nodeBlockSize == 152, "nodeHeader layout drifted from spec: %d bytes", nodeBlockSize)
}

func nodeHeaderOf(p unsafe.Pointer) *nodeHeader {
	return (*nodeHeader)(p)
}

func nodeLevel(p unsafe.Pointer) uint8 {
	return uint8(atomic.LoadUint32(&nodeHeaderOf(p).levelAndRefcount))
}

func nodeRefcount(p unsafe.Pointer) uint32 {
	return atomic.LoadUint32(&nodeHeaderOf(p).levelAndRefcount) >> 8
}

func nodeAcquireSelf(p unsafe.Pointer) {
	atomic.AddUint32(&nodeHeaderOf(p).levelAndRefcount, 1<<8)
}

// nodeReleaseSelf decrements the node's refcount and returns the value
// observed after the decrement.
func nodeReleaseSelf(p unsafe.Pointer) uint32 {
	return atomic.AddUint32(&nodeHeaderOf(p).levelAndRefcount, ^uint32(1<<8-1)) >> 8
}

func nodeTotalCount(p unsafe.Pointer) uint32 {
	return atomic.LoadUint32(&nodeHeaderOf(p).totalCount)
}

func nodeChild(p unsafe.Pointer, slot int) Handle {
	hdr := nodeHeaderOf(p)
	return Handle{tag: hdr.childTags[slot], payload: hdr.childPayloads[slot]}
}

func nodeSetChild(p unsafe.Pointer, slot int, h Handle) {
	hdr := nodeHeaderOf(p)
	hdr.childTags[slot] = h.tag
	hdr.childPayloads[slot] = h.payload
}

// allocNode allocates a fresh, empty Node block at the given level with
// refcount 1 and totalCount 0. All 16 children start Empty (the zero tag
// value), which is exactly the Allocator's zeroed memory.
func allocNode(a Allocator, level uint8) (unsafe.Pointer, error) {
	p, err := a.Allocate(nodeBlockSize)
	if err != nil {
		return nil, err
	}
	hdr := nodeHeaderOf(p)
	hdr.levelAndRefcount = uint32(level) | (1 << 8)
	return p, nil
}

// cloneNodeShallow duplicates the 152-byte block and acquires every
// non-empty child (spec.md §4.4 step 2's "deep-shallow-copy"): shallow
// because only the header is copied, "deep" in that every child's
// refcount reflects the new node now also referencing it. Every
// pointer-backed child is stored immutable in the copy, since it is now
// shared with the original node and must be copied, not written, by a
// later mutation through the copy.
func cloneNodeShallow(a Allocator, p unsafe.Pointer) (unsafe.Pointer, error) {
	np, err := a.Allocate(nodeBlockSize)
	if err != nil {
		return nil, err
	}
	src := nodeHeaderOf(p)
	dst := nodeHeaderOf(np)
	*dst = *src
	dst.levelAndRefcount = uint32(src.levelAndRefcount&0xFF) | (1 << 8)
	for i := 0; i < nodeFanout; i++ {
		c := nodeChild(np, i)
		dispatchAcquire(c)
		if c.isPointerBacked() {
			dst.childTags[i] |= immutableBit
		}
	}
	return np, nil
}

func nodeContains(h Handle, id uint32) bool {
	p := h.ptr()
	w := width(nodeLevel(p))
	slot := uint64(id) / w
	if slot >= nodeFanout {
		return false
	}
	child := nodeChild(p, int(slot))
	if child.kind() == kindEmpty {
		return false
	}
	rel := uint32(uint64(id) - slot*w)
	return dispatchContains(child, rel)
}

func nodeCount(h Handle) uint32 {
	return nodeTotalCount(h.ptr())
}

// nodeTryAdd implements spec.md §4.4's Node insertion path.
func nodeTryAdd(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	p := h.ptr()
	level := nodeLevel(p)
	w := width(level)
	slot := uint64(id) / w
	if slot >= nodeFanout {
		return createParentAndAdd(h, a, id)
	}

	oldChild := nodeChild(p, int(slot))
	if h.Immutable() {
		// A frozen node's children are frozen too, even where the child's
		// own stored tag wasn't individually marked (spec.md §4.8): force
		// it here so the recursive call never mutates shared state in place.
		oldChild = oldChild.withImmutable()
	}
	rel := uint32(uint64(id) - slot*w)
	newChild, changed, err := dispatchTryAdd(oldChild, a, rel)
	if err != nil {
		return Handle{}, false, err
	}
	if !changed {
		return h, false, nil
	}

	var target unsafe.Pointer
	if h.Immutable() {
		target, err = cloneNodeShallow(a, p)
		if err != nil {
			return Handle{}, false, err
		}
	} else {
		target = p
		nodeAcquireSelf(p)
	}

	dispatchRelease(nodeChild(target, int(slot)), a)
	nodeSetChild(target, int(slot), newChild)
	atomic.AddUint32(&nodeHeaderOf(target).totalCount, 1)

	return handleFromPtr(kindNode, target, false), true, nil
}

// nodeTryRemove implements spec.md §4.6's Node removal path.
func nodeTryRemove(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	p := h.ptr()
	level := nodeLevel(p)
	w := width(level)
	slot := uint64(id) / w
	if slot >= nodeFanout {
		return h, false, nil
	}

	oldChild := nodeChild(p, int(slot))
	if oldChild.kind() == kindEmpty {
		return h, false, nil
	}
	if h.Immutable() {
		oldChild = oldChild.withImmutable()
	}
	rel := uint32(uint64(id) - slot*w)
	newChild, changed, err := dispatchTryRemove(oldChild, a, rel)
	if err != nil {
		return Handle{}, false, err
	}
	if !changed {
		return h, false, nil
	}

	var target unsafe.Pointer
	if h.Immutable() {
		target, err = cloneNodeShallow(a, p)
		if err != nil {
			return Handle{}, false, err
		}
	} else {
		target = p
		nodeAcquireSelf(p)
	}

	dispatchRelease(nodeChild(target, int(slot)), a)
	nodeSetChild(target, int(slot), newChild)
	newTotal := atomic.AddUint32(&nodeHeaderOf(target).totalCount, ^uint32(0))

	if newTotal <= maxArrayItemCount {
		leaf, err := collapseNodeToLeaf(target, a)
		if err != nil {
			return Handle{}, false, err
		}
		// The node itself (not its children, which the leaf build already
		// streamed and which remain owned by target until released) is
		// discarded: release target, which recursively releases children.
		dispatchRelease(handleFromPtr(kindNode, target, false), a)
		return leaf, true, nil
	}

	return handleFromPtr(kindNode, target, false), true, nil
}

// collapseNodeToLeaf streams every id in target (relative to target's own
// base) through target's stream reader into the generic leaf builder,
// per spec.md §4.6 "convert the node to a leaf".
func collapseNodeToLeaf(target unsafe.Pointer, a Allocator) (Handle, error) {
	r := newNodeReader(target)
	return buildFromStreamReader(r, a)
}

// createParentAndAdd implements spec.md §4.5: used only from a Node's own
// slot-overflow branch (current is always a Node here). It wraps the
// current tree as slot 0 of a fresh Node one level taller and performs the
// add on that node.
//
// The new level is sized from current's own bound alone, deliberately
// ignoring newID: current's bound is exactly width(currentLevel+1)-1, and
// the overflow precondition that got us here (slot = newID/width(currentLevel)
// >= nodeFanout) guarantees newID >= width(currentLevel+1) already, so
// wrapping at exactly one level taller always routes newID to a slot other
// than 0 — it can never land back on top of the wrapped content. Sizing
// the new level to also satisfy newID directly (as the naive reading of
// "W(level) exceeds both" suggests) would instead make newID fit inside
// slot 0 alongside current, recursing into the same overflow forever. If a
// single extra level still isn't enough for an enormous newID, the
// recursive add below finds that out itself and calls createParentAndAdd
// again on the freshly built node, growing one level at a time until
// maxLevel is reached.
func createParentAndAdd(current Handle, a Allocator, newID uint32) (Handle, bool, error) {
	bound := maxIDBound(current)

	var level uint8
	for level = 0; level <= maxLevel; level++ {
		if width(level) > uint64(bound) {
			break
		}
	}
	assert.Assert(level <= maxLevel, "createParentAndAdd: no level covers bound %d", bound)

	p, err := allocNode(a, level)
	if err != nil {
		return Handle{}, false, err
	}
	acquired := dispatchAcquire(current)
	nodeSetChild(p, 0, acquired)
	nodeHeaderOf(p).totalCount = dispatchCount(current)

	parent := handleFromPtr(kindNode, p, false)
	result, changed, err := nodeTryAdd(parent, a, newID)
	assert.Assert(changed, "createParentAndAdd: add on a fresh parent must report changed")
	// result holds its own reference to the parent (or to a grander parent
	// built on top of it); drop the one allocNode created.
	dispatchRelease(parent, a)
	return result, changed, err
}

// maxIDBound returns h's exact maximum id where that is cheap to compute
// (inline/array/bitset leaves), or a safe upper bound otherwise (Node: the
// widest id its level could possibly hold). create-parent-and-add only
// needs a level whose width strictly exceeds the true max, so an upper
// bound is sufficient and avoids an O(n) walk for large trees; it is only
// ever a few bits looser than the exact value in the rare Node case.
func maxIDBound(h Handle) uint32 {
	switch h.kind() {
	case kindEmpty:
		return 0
	case kindInline1:
		return inline1Get(h)
	case kindInline2:
		_, b := inline2Get(h)
		return b
	case kindInline3:
		ids := inline3Get(h)
		return ids[2]
	case kindInline4:
		ids := inline4Get(h)
		return ids[3]
	case kindArray16:
		p := h.ptr()
		hdr := array16HeaderOf(p)
		items := array16Items(p, hdr.count)
		return uint32(items[len(items)-1])
	case kindArray32:
		p := h.ptr()
		hdr := array32HeaderOf(p)
		items := array32Items(p, hdr.count)
		return items[len(items)-1]
	case kindBitSet:
		words := bitSetWordsOf(h.ptr())
		for wi := bitSetWords - 1; wi >= 0; wi-- {
			if words[wi] != 0 {
				return uint32(wi*64 + 63 - bits.LeadingZeros64(words[wi]))
			}
		}
		return 0
	case kindNode:
		p := h.ptr()
		bound := uint64(nodeFanout)*width(nodeLevel(p)) - 1
		if bound > uint64(^uint32(0)) {
			bound = uint64(^uint32(0))
		}
		return uint32(bound)
	default:
		assert.Assert(false, "maxIDBound: unknown kind %v", h.kind())
		return 0
	}
}

// nodeReader recurses through a Node's 16 children in order, adding each
// slot's base offset, per spec.md §4.2.
type nodeReader struct {
	p        unsafe.Pointer
	w        uint64
	slot     int
	cur      StreamReader
	curBase  uint64
}

func newNodeReader(p unsafe.Pointer) *nodeReader {
	return &nodeReader{p: p, w: width(nodeLevel(p))}
}

func (r *nodeReader) Read(target []uint32) int {
	n := 0
	for n < len(target) {
		if r.cur == nil {
			if r.slot >= nodeFanout {
				return n
			}
			child := nodeChild(r.p, r.slot)
			r.curBase = uint64(r.slot) * r.w
			r.slot++
			if child.kind() == kindEmpty {
				continue
			}
			r.cur = dispatchStreamReader(child)
		}
		var buf [64]uint32
		m := r.cur.Read(buf[:min(len(target)-n, len(buf))])
		if m == 0 {
			r.cur = nil
			continue
		}
		for i := 0; i < m; i++ {
			target[n] = uint32(r.curBase + uint64(buf[i]))
			n++
		}
	}
	return n
}
