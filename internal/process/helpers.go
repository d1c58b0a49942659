package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// SpawnError reports that the daemon binary could not be started at all.
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string { return fmt.Sprintf("%s: spawn failed: %v", e.Name, e.Err) }
func (e *SpawnError) Unwrap() error { return e.Err }

// ExitedError reports that the daemon went away without a caller-initiated stop.
// TimedOut is set when the exit was provoked by the readiness deadline.
type ExitedError struct {
	Name     string
	ExitCode int
	TimedOut bool
}

func (e *ExitedError) Error() string {
	return fmt.Sprintf("%s exited with %d, timeout: %t", e.Name, e.ExitCode, e.TimedOut)
}

// exitCode extracts a shell-style code from a cmd.Wait error.
// Signal deaths map to 128+signo.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return ee.ExitCode()
	}
	return -1
}
