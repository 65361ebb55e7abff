//go:build windows

package process

import (
	"errors"
	"os/exec"
)

func setSysProcAttr(cmd *exec.Cmd) {
	// Windows has no process-group setpgid equivalent here.
}

func killGroup(pid int) error {
	// Fall back to Process.Kill on Windows: the error sends Child.Kill
	// down that path.
	return errors.New("process: process-group kill not supported on windows")
}
