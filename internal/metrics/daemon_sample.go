package metrics

import (
	"log/slog"

	"github.com/shirou/gopsutil/v4/process"
)

// SampleDaemon records the resident memory of a running daemon. Sampling errors
// are only logged at debug: a daemon may exit between readiness and sampling.
func SampleDaemon(daemon string, pid int) {
	if !regOK.Load() || pid <= 0 {
		return
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		slog.Debug("Failed to create process handle", "daemon", daemon, "pid", pid, "error", err)
		return
	}
	memInfo, err := proc.MemoryInfo()
	if err != nil {
		slog.Debug("Failed to get memory info", "daemon", daemon, "pid", pid, "error", err)
		return
	}
	daemonRSS.WithLabelValues(daemon).Set(float64(memInfo.RSS))
}
