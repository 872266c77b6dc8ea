package u32set

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/TomTonic/u32set/internal/assert"
)

// Allocator is the process-level memory collaborator. Allocate returns a
// raw address of at least size bytes, aligned for 64-bit words. Free
// releases exactly such an allocation. The tree never stores the
// Allocator it was built with; it is threaded explicitly through every
// mutating call, so a tree may be released against a different but
// behaviourally-equivalent allocator instance.
type Allocator interface {
	Allocate(size int) (unsafe.Pointer, error)
	Free(ptr unsafe.Pointer)
}

// HeapAllocator is the default Allocator, backing raw addresses with
// Go-managed memory.
//
// Grounded on flier-goutil/pkg/arena's allocTraceable: heap blocks are
// referenced elsewhere in this package only by their numeric address
// (stored as a plain uint64 payload, not a Go pointer), so nothing keeps
// them reachable for the garbage collector once control returns to the
// caller. HeapAllocator closes that gap by holding a strong reference to
// every live allocation in a registry keyed by address; Free drops that
// reference (letting the collector reclaim the bytes whenever it gets
// around to it) rather than truly deallocating, since Go has no explicit
// free. The outstanding counter is exact regardless of when the collector
// actually runs, which is what the refcount-discipline property
// (spec §8 property 8) needs.
type HeapAllocator struct {
	mu         sync.Mutex
	live       map[uintptr][]byte
	outstanding atomic.Int64
}

// NewHeapAllocator returns a ready-to-use HeapAllocator.
func NewHeapAllocator() *HeapAllocator {
	return &HeapAllocator{live: make(map[uintptr][]byte)}
}

// Allocate returns size zeroed bytes, rooted until Free is called.
func (a *HeapAllocator) Allocate(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive", ErrAllocationFailed)
	}
	buf := make([]byte, size)
	p := unsafe.Pointer(&buf[0])
	addr := uintptr(p)

	a.mu.Lock()
	a.live[addr] = buf
	a.mu.Unlock()

	a.outstanding.Add(1)
	return p, nil
}

// Free releases the allocation at ptr. Freeing an address not currently
// live is a precondition violation (debug-assertion only; see
// internal/assert).
func (a *HeapAllocator) Free(ptr unsafe.Pointer) {
	addr := uintptr(ptr)

	a.mu.Lock()
	_, ok := a.live[addr]
	delete(a.live, addr)
	a.mu.Unlock()

	assert.Assert(ok, "HeapAllocator.Free: address %#x is not live", addr)
	if ok {
		a.outstanding.Add(-1)
	}
}

// OutstandingBlocks returns the number of allocations made but not yet
// freed. It is used by tests to verify refcount discipline end to end
// (spec §8 property 8): after a balanced sequence of creates/adds/removes
// followed by matching releases, this must return to its pre-sequence
// value.
func (a *HeapAllocator) OutstandingBlocks() int64 {
	return a.outstanding.Load()
}
