//go:build debug

package matching

import "fmt"

// assertInternal panics on every internal invariant violation in debug
// builds (go build -tags debug), turning a would-be 500 into an
// immediate, loud failure during development and testing.
func assertInternal(msg string, err error) {
	panic(fmt.Sprintf("matching: internal invariant violated: %s: %v", msg, err))
}
