//go:build unix

package oskar

import (
	"os/exec"
	"syscall"
	"time"
)

// configureProcess starts the application in its own process group so that
// cancellation also reaches the workers OSKAR spawns.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second
}
