// Package ping checks reachability of a host through a specific interface by
// running the system ping utility.
package ping

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DefaultBinary = "ping"

// DefaultAttempts is the number of echo round trips per probe.
const DefaultAttempts = 4

var rttPattern = regexp.MustCompile(`time[=<]\s*([0-9]+(?:\.[0-9]+)?)\s*ms`)

// ReachabilityError means no round trip of a probe succeeded. Output holds the
// diagnostic output of the last failed attempt.
type ReachabilityError struct {
	Host   string
	Output string
}

func (e *ReachabilityError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("ping %s: unknown error", e.Host)
	}
	return fmt.Sprintf("ping %s: %s", e.Host, e.Output)
}

// Runner executes one ping invocation and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- host and device come from validated configuration
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Policy decides how many round trips make up one probe. The latency reported
// is the mean of the successful round trips; the probe fails only when none
// succeeded.
type Policy struct {
	Attempts int
}

type Config struct {
	Binary string
	Policy Policy
	Runner Runner // nil runs the binary
}

// Prober is the reachability prober. It holds no per-probe state.
type Prober struct {
	cfg    Config
	logger *slog.Logger
}

func NewProber(cfg Config, logger *slog.Logger) *Prober {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Policy.Attempts <= 0 {
		cfg.Policy.Attempts = DefaultAttempts
	}
	if cfg.Runner == nil {
		cfg.Runner = execRunner
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{cfg: cfg, logger: logger}
}

// Probe sends Policy.Attempts echo requests to host out of dev, each bounded by
// timeout, and returns the mean round-trip time of the successful ones.
func (p *Prober) Probe(ctx context.Context, dev, host string, timeout time.Duration) (time.Duration, error) {
	var (
		total    time.Duration
		ok       int
		lastFail string
	)
	for i := 0; i < p.cfg.Policy.Attempts; i++ {
		rtt, out, err := p.once(ctx, dev, host, timeout)
		if err != nil {
			lastFail = out
			p.logger.Debug("ping attempt failed",
				slog.String("device", dev), slog.String("host", host),
				slog.Int("attempt", i+1), slog.Any("error", err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		total += rtt
		ok++
	}
	if ok == 0 {
		return 0, &ReachabilityError{Host: host, Output: lastFail}
	}
	return total / time.Duration(ok), nil
}

func (p *Prober) once(ctx context.Context, dev, host string, timeout time.Duration) (time.Duration, string, error) {
	// ping enforces -W itself; the context only guards against a wedged utility
	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	out, err := p.cfg.Runner(ctx, p.cfg.Binary, Args(dev, host, timeout)...)
	text := strings.TrimSpace(string(out))
	if err != nil {
		return 0, text, err
	}
	rtt, perr := ParseRTT(text)
	if perr != nil {
		return 0, text, perr
	}
	return rtt, text, nil
}

// Args builds the ping argument list for a single numeric echo bound to dev.
func Args(dev, host string, timeout time.Duration) []string {
	secs := int(math.Ceil(timeout.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return []string{"-n", "-c", "1", "-W", strconv.Itoa(secs), "-I", dev, host}
}

// ParseRTT extracts the round-trip time from ping output.
func ParseRTT(out string) (time.Duration, error) {
	m := rttPattern.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("no round-trip time in ping output")
	}
	ms, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse round-trip time %q: %w", m[1], err)
	}
	return time.Duration(math.Round(ms * float64(time.Millisecond))), nil
}
