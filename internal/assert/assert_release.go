//go:build !debug

package assert

// Enabled reports whether the debug build tag is active.
const Enabled = false

// Assert is a no-op outside of debug builds.
func Assert(cond bool, format string, args ...any) {}
