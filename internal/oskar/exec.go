package oskar

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/vk/oskargrid/internal/ctxlog"
)

const (
	stderrTailLines = 20
	stdoutTailLines = 50
)

// run executes an OSKAR application with a settings file and waits for it.
// The process inherits the caller's working directory, so relative paths
// in the settings resolve the way the grid author wrote them. When ctx ends
// the whole process group is killed.
func run(ctx context.Context, op, bin, iniPath string) error {
	logger := ctxlog.FromContext(ctx).With("op", op, "bin", bin)

	cmd := exec.CommandContext(ctx, bin, iniPath)
	configureProcess(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Info("Running OSKAR application.", "settings", iniPath)
	start := time.Now()
	err := cmd.Run()
	logger.Debug("OSKAR application finished.",
		"duration", time.Since(start).String(),
		"stdout", tail(stdout.String(), stdoutTailLines),
	)
	if err == nil {
		return nil
	}

	execErr := &ExecutionError{
		Op:       op,
		ExitCode: -1,
		Stderr:   tail(stderr.String(), stderrTailLines),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		execErr.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		execErr.Err = ctx.Err()
	}
	return execErr
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
