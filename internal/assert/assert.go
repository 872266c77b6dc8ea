//go:build debug

// Package assert provides build-tag gated invariant checks for u32set.
//
// With the "debug" build tag, Assert panics on a violated invariant.
// Without it, Assert compiles away entirely so release builds pay nothing
// for the check -- violating an invariant in a release build is undefined
// behaviour, not a checked error.
package assert

import "fmt"

// Enabled reports whether the debug build tag is active.
const Enabled = true

// Assert panics with a formatted message if cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("u32set: internal assertion failed: "+format, args...))
	}
}
