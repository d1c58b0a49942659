package process

import (
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"
)

// DefaultKillGrace is how long a daemon may ignore the interrupt signal before
// it is killed.
const DefaultKillGrace = 5 * time.Second

// LineMatcher decides whether one line of daemon output means the daemon is ready.
type LineMatcher func(line string) bool

// HasPrefix matches lines starting with prefix.
func HasPrefix(prefix string) LineMatcher {
	return func(line string) bool { return strings.HasPrefix(line, prefix) }
}

// Contains matches lines containing substr anywhere.
func Contains(substr string) LineMatcher {
	return func(line string) bool { return strings.Contains(line, substr) }
}

// Spec describes one supervised daemon invocation.
type Spec struct {
	Name string   // short daemon name used in logs and metrics, e.g. "dhclient"
	Path string   // absolute path of the binary
	Args []string // arguments, without argv[0]

	// Ready is consulted for every output line until it matches once.
	Ready LineMatcher
	// ReadyTimeout bounds the wait for Ready. Zero means no deadline.
	ReadyTimeout time.Duration
	// Interrupt is sent on graceful stop and on deadline expiry (default SIGINT).
	Interrupt os.Signal
	// KillGrace escalates to SIGKILL when the daemon outlives an interrupt for this long.
	// Negative disables escalation; zero uses DefaultKillGrace.
	KillGrace time.Duration
	// Cleanup runs exactly once after the process is gone, whatever the exit path.
	Cleanup func() error

	Logger *slog.Logger
}

func (s *Spec) interrupt() os.Signal {
	if s.Interrupt != nil {
		return s.Interrupt
	}
	return syscall.SIGINT
}

func (s *Spec) killGrace() time.Duration {
	if s.KillGrace == 0 {
		return DefaultKillGrace
	}
	return s.KillGrace
}

func (s *Spec) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
