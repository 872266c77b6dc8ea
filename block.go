package u32set

import (
	"sync/atomic"
	"unsafe"
)

// Every Array16/Array32/BitSet heap block begins with a plain uint32
// refcount word at offset 0 (invariant 10 of spec.md §3). Node blocks pack
// their refcount alongside a level byte and use the node-specific helpers
// in node.go instead.

func refcountPtr(p unsafe.Pointer) *uint32 {
	return (*uint32)(p)
}

func initBlockRefcount(p unsafe.Pointer) {
	atomic.StoreUint32(refcountPtr(p), 1)
}

func acquireBlockRef(p unsafe.Pointer) {
	atomic.AddUint32(refcountPtr(p), 1)
}

// releaseBlockRef decrements the refcount and returns the value observed
// after the decrement. The caller that observes 0 owns the free path.
func releaseBlockRef(p unsafe.Pointer) uint32 {
	return atomic.AddUint32(refcountPtr(p), ^uint32(0))
}

func loadBlockRefcount(p unsafe.Pointer) uint32 {
	return atomic.LoadUint32(refcountPtr(p))
}

// allocBlock allocates size bytes through a and initializes a leading
// refcount word of 1. size must already account for the refcount header.
func allocBlock(a Allocator, size int) (unsafe.Pointer, error) {
	p, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}
	initBlockRefcount(p)
	return p, nil
}
