package u32set

import "github.com/TomTonic/u32set/internal/assert"

// dispatch.go holds the single-branch-on-tag dispatchers every operation
// funnels through (spec.md §9 design notes: "dispatch is a single branch
// on the low 7 bits of the tag"). Each per-representation implementation
// lives in its own leaf_*.go/node.go file, named after the teacher's
// one-file-per-node-kind convention (art_node5.go, art_node51.go, ...).

func dispatchContains(h Handle, id uint32) bool {
	switch h.kind() {
	case kindEmpty, kindInline1, kindInline2, kindInline3, kindInline4:
		return inlineContains(h, id)
	case kindArray16:
		return array16Contains(h, id)
	case kindArray32:
		return array32Contains(h, id)
	case kindBitSet:
		return bitSetContains(h, id)
	case kindNode:
		return nodeContains(h, id)
	default:
		assert.Assert(false, "dispatchContains: unknown kind %v", h.kind())
		return false
	}
}

func dispatchCount(h Handle) uint32 {
	switch h.kind() {
	case kindEmpty, kindInline1, kindInline2, kindInline3, kindInline4:
		return inlineCount(h)
	case kindArray16:
		return array16Count(h)
	case kindArray32:
		return array32Count(h)
	case kindBitSet:
		return bitSetCount(h)
	case kindNode:
		return nodeCount(h)
	default:
		assert.Assert(false, "dispatchCount: unknown kind %v", h.kind())
		return 0
	}
}

func dispatchTryAdd(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	switch h.kind() {
	case kindEmpty, kindInline1, kindInline2, kindInline3, kindInline4:
		return inlineTryAdd(h, a, id)
	case kindArray16:
		return array16TryAdd(h, a, id)
	case kindArray32:
		return array32TryAdd(h, a, id)
	case kindBitSet:
		return bitSetTryAdd(h, a, id)
	case kindNode:
		return nodeTryAdd(h, a, id)
	default:
		assert.Assert(false, "dispatchTryAdd: unknown kind %v", h.kind())
		return Handle{}, false, nil
	}
}

func dispatchTryRemove(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	switch h.kind() {
	case kindEmpty, kindInline1, kindInline2, kindInline3, kindInline4:
		return inlineTryRemove(h, a, id)
	case kindArray16:
		return array16TryRemove(h, a, id)
	case kindArray32:
		return array32TryRemove(h, a, id)
	case kindBitSet:
		return bitSetTryRemove(h, a, id)
	case kindNode:
		return nodeTryRemove(h, a, id)
	default:
		assert.Assert(false, "dispatchTryRemove: unknown kind %v", h.kind())
		return Handle{}, false, nil
	}
}

func dispatchStreamReader(h Handle) StreamReader {
	switch h.kind() {
	case kindEmpty, kindInline1, kindInline2, kindInline3, kindInline4:
		return inlineStreamReader(h)
	case kindArray16:
		return array16StreamReader(h)
	case kindArray32:
		return array32StreamReader(h)
	case kindBitSet:
		return bitSetStreamReader(h)
	case kindNode:
		return newNodeReader(h.ptr())
	default:
		assert.Assert(false, "dispatchStreamReader: unknown kind %v", h.kind())
		return &sliceReader{}
	}
}

// dispatchAcquire increments the refcount of h's backing block (a no-op
// for inline/empty handles) and returns h itself for chaining.
func dispatchAcquire(h Handle) Handle {
	if h.isPointerBacked() {
		if h.kind() == kindNode {
			nodeAcquireSelf(h.ptr())
		} else {
			acquireBlockRef(h.ptr())
		}
	}
	return h
}

// dispatchRelease decrements the refcount of h's backing block and, on
// reaching zero, recursively releases children (Node) before freeing the
// block (spec.md §3 lifecycle, invariant 10).
func dispatchRelease(h Handle, a Allocator) {
	if !h.isPointerBacked() {
		return
	}
	p := h.ptr()
	if h.kind() == kindNode {
		if nodeReleaseSelf(p) == 0 {
			for i := 0; i < nodeFanout; i++ {
				dispatchRelease(nodeChild(p, i), a)
			}
			a.Free(p)
		}
		return
	}
	if releaseBlockRef(p) == 0 {
		a.Free(p)
	}
}

// dispatchEstimateBytes returns the byte footprint of h's own heap block
// plus perBlockOverhead for that block and, for a Node, the recursive
// footprint (overhead included) of its children.
func dispatchEstimateBytes(h Handle) uint64 {
	switch h.kind() {
	case kindEmpty, kindInline1, kindInline2, kindInline3, kindInline4:
		return 0
	case kindArray16:
		p := h.ptr()
		hdr := array16HeaderOf(p)
		return uint64(array16HeaderSize+int(hdr.count)*2) + perBlockOverhead
	case kindArray32:
		p := h.ptr()
		hdr := array32HeaderOf(p)
		return uint64(array32HeaderSize+int(hdr.count)*4) + perBlockOverhead
	case kindBitSet:
		return uint64(bitSetBlockSize) + perBlockOverhead
	case kindNode:
		p := h.ptr()
		total := uint64(nodeBlockSize) + perBlockOverhead
		for i := 0; i < nodeFanout; i++ {
			total += dispatchEstimateBytes(nodeChild(p, i))
		}
		return total
	default:
		return 0
	}
}
