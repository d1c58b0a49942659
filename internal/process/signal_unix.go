//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// signalGroup delivers sig to the daemon's whole process group so helpers it
// forked do not outlive it.
func signalGroup(pid int, sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		s = syscall.SIGINT
	}
	err := syscall.Kill(-pid, s)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

func killGroup(pid int) error { return signalGroup(pid, syscall.SIGKILL) }

// configureSysProcAttr places the daemon in a new process group for group signaling.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
