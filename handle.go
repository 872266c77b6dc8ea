// Package u32set implements a persistent, reference-counted, adaptively
// represented ordered set of uint32 values.
//
// A Handle is a small value type: a one-byte tag (representation kind plus
// an immutability bit) and an eight-byte payload that is either packed
// inline data or a raw address to a heap block carrying its own refcount
// header. Handles are cheap to copy; pointer-backed variants share
// structure across copies until a mutation forces a copy-on-write split.
//
// Every mutating call takes an explicit Allocator. The tree never stores
// the allocator it was built with, so a tree may be released against any
// behaviourally-equivalent allocator instance.
package u32set

import "unsafe"

// kind identifies a Handle's representation. It occupies the low 7 bits
// of the tag byte; the high bit is the immutability flag.
type kind uint8

const (
	kindEmpty   kind = 0
	kindInline1 kind = 1
	kindInline2 kind = 2
	kindInline3 kind = 3
	kindInline4 kind = 4
	// 5 is reserved.
	kindArray16 kind = 6
	kindArray32 kind = 7
	kindBitSet  kind = 8
	kindNode    kind = 9
)

const (
	kindMask      uint8 = 0x7F
	immutableBit  uint8 = 0x80
)

func (k kind) String() string {
	switch k {
	case kindEmpty:
		return "Empty"
	case kindInline1:
		return "Inline1"
	case kindInline2:
		return "Inline2"
	case kindInline3:
		return "Inline3"
	case kindInline4:
		return "Inline4"
	case kindArray16:
		return "Array16"
	case kindArray32:
		return "Array32"
	case kindBitSet:
		return "BitSet"
	case kindNode:
		return "Node"
	default:
		return "Unknown"
	}
}

// Handle is the public, copyable handle to a set. The zero Handle is the
// empty set, the same value Empty() returns.
type Handle struct {
	tag     uint8
	payload uint64
}

// Empty returns the canonical empty-set handle. It carries no lifecycle
// cost: Acquire/Release are no-ops on it.
func Empty() Handle {
	return Handle{tag: uint8(kindEmpty)}
}

func (h Handle) kind() kind {
	return kind(h.tag & kindMask)
}

// Immutable reports whether h's immutability bit is set.
func (h Handle) Immutable() bool {
	return h.tag&immutableBit != 0
}

func (h Handle) withKind(k kind) Handle {
	h.tag = (h.tag & immutableBit) | uint8(k)
	return h
}

func (h Handle) withImmutable() Handle {
	h.tag |= immutableBit
	return h
}

// isPointerBacked reports whether h's payload is a heap address rather
// than packed inline data.
func (h Handle) isPointerBacked() bool {
	switch h.kind() {
	case kindArray16, kindArray32, kindBitSet, kindNode:
		return true
	default:
		return false
	}
}

func (h Handle) ptr() unsafe.Pointer {
	return unsafe.Pointer(uintptr(h.payload))
}

func handleFromPtr(k kind, p unsafe.Pointer, immutable bool) Handle {
	h := Handle{tag: uint8(k), payload: uint64(uintptr(p))}
	if immutable {
		h = h.withImmutable()
	}
	return h
}

// IsEmpty reports whether h denotes the empty set.
func (h Handle) IsEmpty() bool {
	return h.kind() == kindEmpty
}
