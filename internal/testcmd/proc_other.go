//go:build !unix

package testcmd

import (
	"os"
	"os/exec"
)

func isolate(c *exec.Cmd) {}

func killGroup(p *os.Process) error {
	return p.Kill()
}
