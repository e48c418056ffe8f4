package oskar

import (
	"fmt"
	"strings"
)

// ExecutionError reports a failure inside the OSKAR toolkit: a rejected sky
// array, an unusable settings tree, a process that could not start or
// exited non-zero, or output that could not be read back.
type ExecutionError struct {
	// Op names the toolkit operation, e.g. "sky.from_array" or "imager.run".
	Op string
	// ExitCode is the process exit code, or -1 when no process ran.
	ExitCode int
	// Stderr holds the last lines the process wrote to standard error.
	Stderr string
	Err    error
}

func (e *ExecutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "oskar %s", e.Op)
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, "\n%s", e.Stderr)
	}
	return b.String()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func opError(op string, err error) *ExecutionError {
	return &ExecutionError{Op: op, ExitCode: -1, Err: err}
}
