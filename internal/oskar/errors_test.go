package oskar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionError(t *testing.T) {
	cause := errors.New("boom")

	err := &ExecutionError{Op: "imager.run", ExitCode: 2, Stderr: "line1\nline2", Err: cause}
	assert.Equal(t, "oskar imager.run (exit 2): boom\nline1\nline2", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "oskar sky.from_array: boom", opError("sky.from_array", cause).Error())
}
