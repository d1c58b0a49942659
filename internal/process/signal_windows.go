//go:build windows

package process

import (
	"errors"
	"os"
	"os/exec"
)

// Windows has no process groups or interrupt delivery to children; both
// operations terminate the process.
func signalGroup(pid int, _ os.Signal) error { return killGroup(pid) }

func killGroup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func configureSysProcAttr(_ *exec.Cmd) {}
