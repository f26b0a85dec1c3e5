package patch

import (
	"errors"
	"fmt"
)

// ErrInvalidJSON is returned when a structural operation is attempted on text
// that does not parse.
var ErrInvalidJSON = errors.New("document is not valid JSON")

// PathError reports an operation whose target path cannot be resolved.
type PathError struct {
	Op   string
	Path string
	Msg  string
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("patch %s %q: %s", e.Op, e.Path, e.Msg)
}

// TestFailedError reports a failed "test" operation. The whole patch is
// aborted when a test fails.
type TestFailedError struct {
	Path     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *TestFailedError) Error() string {
	return fmt.Sprintf("patch test %q failed: have %s, want %s", e.Path, e.Actual, e.Expected)
}
