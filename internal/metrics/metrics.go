package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Failure reasons used as the "reason" label of daemon failures.
const (
	ReasonSpawn   = "spawn"
	ReasonExit    = "exit"
	ReasonTimeout = "timeout"
)

// Cycle outcomes used as the "outcome" label of scheduler cycles.
const (
	CycleCompleted   = "completed"
	CycleDropped     = "dropped"
	CycleInterrupted = "interrupted"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	daemonStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stationprobe",
			Subsystem: "daemon",
			Name:      "starts_total",
			Help:      "Number of supervised daemon launches.",
		}, []string{"daemon"},
	)
	daemonStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stationprobe",
			Subsystem: "daemon",
			Name:      "stops_total",
			Help:      "Number of caller-initiated graceful stops.",
		}, []string{"daemon"},
	)
	daemonFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stationprobe",
			Subsystem: "daemon",
			Name:      "failures_total",
			Help:      "Number of daemon failures by reason (spawn, exit, timeout).",
		}, []string{"daemon", "reason"},
	)
	daemonReadiness = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stationprobe",
			Subsystem: "daemon",
			Name:      "readiness_seconds",
			Help:      "Time from launch until the readiness line was observed.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"daemon"},
	)
	daemonRSS = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stationprobe",
			Subsystem: "daemon",
			Name:      "rss_bytes",
			Help:      "Resident memory of the daemon sampled when it became ready.",
		}, []string{"daemon"},
	)
	schedulerCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stationprobe",
			Subsystem: "scheduler",
			Name:      "cycles_total",
			Help:      "Number of probe cycle triggers by outcome (completed, dropped, interrupted).",
		}, []string{"outcome"},
	)
	schedulerCycleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stationprobe",
			Subsystem: "scheduler",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of completed probe cycles.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stationprobe",
			Subsystem: "daemon",
			Name:      "state_transitions_total",
			Help:      "Number of state transitions between daemon lifecycle states.",
		}, []string{"daemon", "from", "to"},
	)
)

// Register registers all daemon metrics with the provided registerer. Every
// registerer gets the same process-wide collectors, so several registries may
// expose them side by side. Calling it again for the same registerer is a no-op.
func Register(r prometheus.Registerer) error {
	cs := []prometheus.Collector{daemonStarts, daemonStops, daemonFailures, daemonReadiness, daemonRSS, stateTransitions, schedulerCycles, schedulerCycleSeconds}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with the same registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// HandlerFor returns an http.Handler serving the metrics gathered by g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncDaemonStart(daemon string) {
	if regOK.Load() {
		daemonStarts.WithLabelValues(daemon).Inc()
	}
}

func IncDaemonStop(daemon string) {
	if regOK.Load() {
		daemonStops.WithLabelValues(daemon).Inc()
	}
}

func IncDaemonFailure(daemon, reason string) {
	if regOK.Load() {
		daemonFailures.WithLabelValues(daemon, reason).Inc()
	}
}

func ObserveReadiness(daemon string, seconds float64) {
	if regOK.Load() {
		daemonReadiness.WithLabelValues(daemon).Observe(seconds)
	}
}

func RecordStateTransition(daemon, from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(daemon, from, to).Inc()
	}
}

func IncCycle(outcome string) {
	if regOK.Load() {
		schedulerCycles.WithLabelValues(outcome).Inc()
	}
}

func ObserveCycle(seconds float64) {
	if regOK.Load() {
		schedulerCycleSeconds.Observe(seconds)
	}
}
