//go:build unix

package testcmd

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// isolate starts the program in its own process group so cancellation
// reaches every process it spawned, not only the direct child.
func isolate(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error { return killGroup(c.Process) }
}

func killGroup(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}
