package results

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/stationprobe/internal/station"
)

const namespace = "stationprobe"

var (
	stationLabels = []string{"station"}

	associationSucceeded = desc("association_succeeded", "Whether association with the station succeeded (1 ok, 0 failed).")
	associationTime      = desc("association_time_seconds", "Time it took to associate with the station.")
	leaseSucceeded       = desc("lease_succeeded", "Whether a DHCP lease was obtained through the station (1 ok, 0 failed).")
	leaseTime            = desc("lease_retrieval_time_seconds", "Time it took to obtain a DHCP lease through the station.")
	probeSucceeded       = desc("probe_succeeded", "Whether the ping host answered through the station (1 ok, 0 failed).")
	probeLatency         = desc("probe_latency_seconds", "Mean ping round trip through the station.")
	lastRun              = desc("last_run_timestamp_seconds", "Unix time the last test of the station started.")
	runDuration          = desc("run_duration_seconds", "Wall time of the last test of the station including teardown.")

	sinceLastCycle = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "seconds_since_last_cycle"),
		"Seconds since the last full probe cycle completed.",
		nil, nil,
	)
)

func desc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "station", name), help, stationLabels, nil)
}

// Collector exports a Store snapshot on every scrape.
type Collector struct {
	store *Store
}

func NewCollector(s *Store) *Collector { return &Collector{store: s} }

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		associationSucceeded, associationTime, leaseSucceeded, leaseTime,
		probeSucceeded, probeLatency, lastRun, runDuration, sinceLastCycle,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.store.Snapshot()
	for _, st := range snap.Stations {
		r := st.Result
		gauge(ch, associationSucceeded, boolValue(r.AssociationSucceeded), st.Station)
		gauge(ch, associationTime, r.AssociationTime, st.Station)
		gauge(ch, leaseSucceeded, boolValue(r.LeaseSucceeded), st.Station)
		gauge(ch, leaseTime, r.LeaseTime, st.Station)
		gauge(ch, probeSucceeded, boolValue(r.ProbeSucceeded), st.Station)
		gauge(ch, probeLatency, r.ProbeLatency, st.Station)
		gauge(ch, lastRun, startedAt(r), st.Station)
		gauge(ch, runDuration, r.Duration, st.Station)
	}
	ch <- prometheus.MustNewConstMetric(sinceLastCycle, prometheus.GaugeValue, c.store.SinceLastCycle().Seconds())
}

func gauge(ch chan<- prometheus.Metric, d *prometheus.Desc, v float64, name string) {
	ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, name)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func startedAt(r station.Result) float64 {
	if r.StartedAt.IsZero() {
		return 0
	}
	return float64(r.StartedAt.UnixNano()) / 1e9
}
