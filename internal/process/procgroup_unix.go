//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the child in its own process group so killGroup can
// signal the whole tree, not just the immediate interpreter process.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killGroup force-terminates the process group rooted at pid.
func killGroup(pid int) error {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return err
	}
	return syscall.Kill(-pgid, syscall.SIGKILL)
}
