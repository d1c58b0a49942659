package process

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loykin/stationprobe/internal/metrics"
)

// readiness settlement; decided exactly once by CAS from settlePending
const (
	settlePending int32 = iota
	settleReady
	settleAborted
)

// Handle supervises one running daemon started by Start.
//
// Exit observation is shared by the failure path and the graceful-stop path:
// the wait goroutine decides Stopped vs Failed by reading the graceful flag,
// which Stop sets before it signals the daemon.
type Handle struct {
	spec Spec
	cmd  *exec.Cmd
	log  *slog.Logger

	state    atomic.Int32
	settle   atomic.Int32
	graceful atomic.Bool
	timedOut atomic.Bool
	reaped   atomic.Bool // cmd.Wait has returned

	ready      chan struct{} // closed once the readiness line was seen
	exited     chan struct{} // closed after exit bookkeeping and cleanup
	readerDone chan struct{}
	watchdog   *time.Timer

	mu        sync.Mutex
	startedAt time.Time
	failure   error
	killTimer *time.Timer

	cleanupOnce sync.Once
}

// Start launches the daemon described by spec and blocks until a line of its
// combined stdout/stderr satisfies spec.Ready, or until it exits.
//
// If spec.ReadyTimeout elapses first the daemon is interrupted and Start
// returns the resulting *ExitedError with TimedOut set. A binary that cannot
// be launched yields *SpawnError. spec.Cleanup has already run whenever Start
// returns an error.
func Start(spec Spec) (*Handle, error) {
	h := &Handle{
		spec:       spec,
		log:        spec.logger().With(slog.String("daemon", spec.Name)),
		ready:      make(chan struct{}),
		exited:     make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	h.state.Store(int32(StateStarting))

	// #nosec G204 -- binary and arguments come from operator configuration
	cmd := exec.Command(spec.Path, spec.Args...)
	configureSysProcAttr(cmd)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	// descendants holding the pipe open must not block exit observation forever
	cmd.WaitDelay = 2 * time.Second
	h.cmd = cmd

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		h.transition(StateFailed)
		h.runCleanup()
		metrics.IncDaemonFailure(spec.Name, metrics.ReasonSpawn)
		h.log.Error("failed to start daemon", slog.String("path", spec.Path), slog.Any("error", err))
		return nil, &SpawnError{Name: spec.Name, Err: err}
	}

	h.mu.Lock()
	h.startedAt = time.Now()
	h.mu.Unlock()
	metrics.IncDaemonStart(spec.Name)
	h.log.Debug("daemon started", slog.Int("pid", cmd.Process.Pid), slog.Any("args", spec.Args))

	if spec.ReadyTimeout > 0 {
		h.watchdog = time.AfterFunc(spec.ReadyTimeout, h.onDeadline)
	}
	go h.readLines(pr)
	go h.wait(pw)

	select {
	case <-h.ready:
	case <-h.exited:
	}
	if h.settle.Load() == settleReady {
		return h, nil
	}
	return nil, h.Err()
}

// Stop interrupts the daemon and waits until it has exited. It is idempotent:
// once the daemon is gone every call returns immediately. The returned error
// only reports a failure to deliver the interrupt.
//
// An exit already reaped keeps its Failed outcome even when the exit
// bookkeeping is still in progress. A daemon that dies while cmd.Wait is
// draining its output (up to WaitDelay) cannot be told apart from one that
// honored the interrupt and is recorded as Stopped.
func (h *Handle) Stop() error {
	select {
	case <-h.exited:
		return nil
	default:
	}
	if h.reaped.Load() {
		<-h.exited
		return nil
	}

	var err error
	// the flag must be visible to the wait goroutine before the signal can cause an exit
	if h.graceful.CompareAndSwap(false, true) {
		h.transition(StateStopping)
		h.log.Debug("stopping daemon")
		err = h.interrupt()
	}
	<-h.exited
	return err
}

// Done is closed once the daemon has exited and cleanup has run.
func (h *Handle) Done() <-chan struct{} { return h.exited }

// Err returns the *ExitedError for an exit that was not caller-initiated, or nil.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failure
}

// State reports the current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// PID returns the daemon's process id.
func (h *Handle) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *Handle) readLines(r io.Reader) {
	defer close(h.readerDone)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		h.log.Info("daemon output", slog.String("line", line))
		if h.spec.Ready != nil && h.settle.Load() == settlePending && h.spec.Ready(line) {
			h.markReady()
		}
	}
	// keep the writer side from blocking after a scan error (oversized line)
	_, _ = io.Copy(io.Discard, r)
}

func (h *Handle) markReady() {
	if !h.settle.CompareAndSwap(settlePending, settleReady) {
		return
	}
	if h.watchdog != nil {
		h.watchdog.Stop()
	}
	h.mu.Lock()
	readyIn := time.Since(h.startedAt)
	h.mu.Unlock()

	h.transition(StateReady)
	metrics.ObserveReadiness(h.spec.Name, readyIn.Seconds())
	metrics.SampleDaemon(h.spec.Name, h.PID())
	h.log.Debug("daemon ready", slog.Duration("ready_in", readyIn))
	close(h.ready)
}

// onDeadline is the watchdog. Winning the settle CAS guarantees readiness was
// not observed, so the watchdog can never interrupt a ready daemon.
func (h *Handle) onDeadline() {
	if !h.settle.CompareAndSwap(settlePending, settleAborted) {
		return
	}
	h.timedOut.Store(true)
	h.log.Warn("readiness deadline elapsed, interrupting daemon", slog.Duration("timeout", h.spec.ReadyTimeout))
	if err := h.interrupt(); err != nil {
		h.log.Error("failed to interrupt daemon", slog.Any("error", err))
	}
}

func (h *Handle) interrupt() error {
	pid := h.PID()
	sig := h.spec.interrupt()
	err := signalGroup(pid, sig)
	if err != nil {
		err = h.cmd.Process.Signal(sig)
		if errors.Is(err, os.ErrProcessDone) {
			err = nil
		}
	}
	if grace := h.spec.killGrace(); grace > 0 {
		h.mu.Lock()
		if h.killTimer == nil {
			h.killTimer = time.AfterFunc(grace, func() {
				h.log.Warn("daemon ignored interrupt, killing", slog.Duration("grace", grace))
				_ = killGroup(pid)
			})
		}
		h.mu.Unlock()
	}
	return err
}

// afterReap runs between reaping the daemon and closing exited; tests use it
// to hold the handle in that window.
var afterReap func()

func (h *Handle) wait(pw *io.PipeWriter) {
	waitErr := h.cmd.Wait()
	h.reaped.Store(true)
	if afterReap != nil {
		afterReap()
	}
	_ = pw.Close()
	<-h.readerDone

	if h.watchdog != nil {
		h.watchdog.Stop()
	}
	h.settle.CompareAndSwap(settlePending, settleAborted)
	code := exitCode(waitErr)

	h.mu.Lock()
	if h.killTimer != nil {
		h.killTimer.Stop()
	}
	h.mu.Unlock()

	if h.graceful.Load() {
		h.transition(StateStopped)
		metrics.IncDaemonStop(h.spec.Name)
		h.log.Debug("daemon stopped", slog.Int("exit_code", code))
	} else {
		timedOut := h.timedOut.Load()
		failure := &ExitedError{Name: h.spec.Name, ExitCode: code, TimedOut: timedOut}
		h.mu.Lock()
		h.failure = failure
		h.mu.Unlock()
		h.transition(StateFailed)
		reason := metrics.ReasonExit
		if timedOut {
			reason = metrics.ReasonTimeout
		}
		metrics.IncDaemonFailure(h.spec.Name, reason)
		h.log.Warn("daemon exited", slog.Int("exit_code", code), slog.Bool("timed_out", timedOut))
	}

	h.runCleanup()
	close(h.exited)
}

// runCleanup invokes spec.Cleanup at most once. Failures are logged only.
func (h *Handle) runCleanup() {
	h.cleanupOnce.Do(func() {
		if h.spec.Cleanup == nil {
			return
		}
		if err := h.spec.Cleanup(); err != nil {
			h.log.Error("daemon cleanup failed", slog.Any("error", err))
		}
	})
}

// transition moves the state forward; terminal states are never left.
func (h *Handle) transition(to State) {
	for {
		from := State(h.state.Load())
		if from == StateStopped || from == StateFailed || from == to {
			return
		}
		if h.state.CompareAndSwap(int32(from), int32(to)) {
			metrics.RecordStateTransition(h.spec.Name, from.String(), to.String())
			return
		}
	}
}
