package u32set

import "errors"

// Error kinds surfaced by the public API. Spec-wise these map to the
// "precondition violation" and "allocation failure" categories; the
// "already present on add"/"not present on remove" cases are NOT errors,
// they are reported through the changed bool TryAdd/TryRemove return.
var (
	// ErrNotAscending is returned by Create when the supplied ids are not
	// strictly ascending.
	ErrNotAscending = errors.New("u32set: ids must be strictly ascending")

	// ErrValueTooLarge reports a value outside the representable range. No
	// operation in this package returns it: every uint32 value is a valid
	// id.
	ErrValueTooLarge = errors.New("u32set: value exceeds representable range")

	// ErrAllocationFailed wraps a failure reported by the caller-supplied
	// Allocator.
	ErrAllocationFailed = errors.New("u32set: allocation failed")
)
