package u32set

import (
	"sort"
	"unsafe"
)

// Create builds a handle from ids, which must already be strictly ascending
// (spec.md §4.7 form 1, §7 precondition). The caller owns the returned
// handle's single reference.
func Create(a Allocator, ids []uint32) (Handle, error) {
	if !sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] < ids[j] }) {
		return Handle{}, ErrNotAscending
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			return Handle{}, ErrNotAscending
		}
	}
	return buildFromSorted(ids, 0, a)
}

// Contains reports whether id is a member of h.
func Contains(h Handle, id uint32) bool {
	return dispatchContains(h, id)
}

// Count returns the number of members of h.
func Count(h Handle) uint32 {
	return dispatchCount(h)
}

// TryAdd attempts to insert id into h. changed is false, and h is returned
// unmodified, when id was already present. Otherwise a handle carrying a
// freshly-owned reference is returned (spec.md §4.4): h's own reference
// remains valid and must still be released. Unless h is immutable, the
// insertion may be made in place in the block h refers to, so h can see id
// too.
func TryAdd(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	return dispatchTryAdd(h, a, id)
}

// Add inserts id into h. If id was already present, the returned handle is
// an acquired copy of h (spec.md §6: "returns acquired copy if unchanged,
// else new handle").
func Add(h Handle, a Allocator, id uint32) (Handle, error) {
	nh, changed, err := dispatchTryAdd(h, a, id)
	if err != nil {
		return Handle{}, err
	}
	if !changed {
		return dispatchAcquire(h), nil
	}
	return nh, nil
}

// TryRemove attempts to remove id from h. changed is false, and h is
// returned unmodified, when id was not present.
func TryRemove(h Handle, a Allocator, id uint32) (Handle, bool, error) {
	return dispatchTryRemove(h, a, id)
}

// Remove removes id from h. If id was not present, the returned handle is
// an acquired copy of h.
func Remove(h Handle, a Allocator, id uint32) (Handle, error) {
	nh, changed, err := dispatchTryRemove(h, a, id)
	if err != nil {
		return Handle{}, err
	}
	if !changed {
		return dispatchAcquire(h), nil
	}
	return nh, nil
}

// MakeImmutable sets h's immutability bit and, for a Node handle, walks
// every descendant Node and marks its stored child tag in place too
// (spec.md §4.8). Leaves are not individually marked; nodeTryAdd/
// nodeTryRemove derive a leaf child's effective immutability from its
// immediate parent at traversal time instead, so correctness does not
// depend on this walk reaching every leaf.
func MakeImmutable(h Handle) Handle {
	h = h.withImmutable()
	if h.kind() == kindNode {
		markNodeDescendantsImmutable(h.ptr())
	}
	return h
}

func markNodeDescendantsImmutable(p unsafe.Pointer) {
	hdr := nodeHeaderOf(p)
	for i := 0; i < nodeFanout; i++ {
		if kind(hdr.childTags[i]&kindMask) != kindNode {
			continue
		}
		hdr.childTags[i] |= immutableBit
		markNodeDescendantsImmutable(unsafe.Pointer(uintptr(hdr.childPayloads[i])))
	}
}

// Acquire increments h's refcount (a no-op for inline/empty handles) and
// returns h for chaining.
func Acquire(h Handle) Handle {
	return dispatchAcquire(h)
}

// Release decrements h's refcount, freeing its backing block (and
// recursively releasing Node children) once it reaches zero.
func Release(h Handle, a Allocator) {
	dispatchRelease(h, a)
}

// EstimateMemoryConsumption returns an approximate byte footprint of h's
// backing storage, including a flat per-block overhead (spec.md §6).
func EstimateMemoryConsumption(h Handle) uint64 {
	return dispatchEstimateBytes(h)
}

// Clone is a convenience alias for Acquire: it documents the
// copy-on-write contract explicitly at call sites that want a second,
// independently-releasable reference to the same logical set.
func Clone(h Handle) Handle {
	return Acquire(h)
}

// Equal reports whether a and b contain the same ids. Two copy-on-write
// siblings sharing a block are equal trivially; two differently-shaped
// trees holding the same ids are equal too, since comparison walks
// content via stream readers rather than comparing (tag, payload).
func Equal(a, b Handle) bool {
	if Count(a) != Count(b) {
		return false
	}
	ra := NewStreamReader(a)
	rb := NewStreamReader(b)
	var bufA, bufB [256]uint32
	var posA, posB, nA, nB int
	for {
		if posA == nA {
			nA = ra.Read(bufA[:])
			posA = 0
		}
		if posB == nB {
			nB = rb.Read(bufB[:])
			posB = 0
		}
		if nA == 0 || nB == 0 {
			return nA == nB
		}
		if bufA[posA] != bufB[posB] {
			return false
		}
		posA++
		posB++
	}
}

// ForEach calls fn with every id in h, ascending, stopping early if fn
// returns false. It is sugar over NewStreamReader for callers who do not
// want to manage a read buffer themselves.
func ForEach(h Handle, fn func(id uint32) bool) {
	r := NewStreamReader(h)
	var buf [256]uint32
	for {
		n := r.Read(buf[:])
		if n == 0 {
			return
		}
		for i := 0; i < n; i++ {
			if !fn(buf[i]) {
				return
			}
		}
	}
}
