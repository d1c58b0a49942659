package metrics

import (
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	testRegOnce sync.Once
	testReg     *prometheus.Registry
)

// registry returns a registry shared by the tests of this package.
func registry(t *testing.T) *prometheus.Registry {
	t.Helper()
	testRegOnce.Do(func() {
		testReg = prometheus.NewRegistry()
		if err := Register(testReg); err != nil {
			t.Fatalf("first register: %v", err)
		}
	})
	return testReg
}

func TestRegisterIdempotentAndCountersWork(t *testing.T) {
	reg := registry(t)
	// idempotent: calling again should be no-op
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}

	IncDaemonStart("dhclient")
	IncDaemonStart("dhclient")
	IncDaemonStop("dhclient")
	IncDaemonFailure("wpa_supplicant", ReasonTimeout)
	ObserveReadiness("dhclient", 0.4)
	RecordStateTransition("dhclient", "starting", "ready")
	SampleDaemon("self", os.Getpid())
	IncCycle(CycleCompleted)
	IncCycle(CycleDropped)
	ObserveCycle(12.5)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	wantNames := map[string]bool{
		"stationprobe_daemon_starts_total":              false,
		"stationprobe_daemon_stops_total":               false,
		"stationprobe_daemon_failures_total":            false,
		"stationprobe_daemon_readiness_seconds":         false,
		"stationprobe_daemon_state_transitions_total":   false,
		"stationprobe_scheduler_cycles_total":           false,
		"stationprobe_scheduler_cycle_duration_seconds": false,
	}
	for _, mf := range mfs {
		n := mf.GetName()
		if _, ok := wantNames[n]; ok {
			wantNames[n] = true
			if len(mf.GetMetric()) == 0 {
				t.Fatalf("metric %s has no samples", n)
			}
		}
	}
	for n, ok := range wantNames {
		if !ok {
			t.Fatalf("expected to find metric %s", n)
		}
	}
}

func TestHandlerForServesRegistry(t *testing.T) {
	reg := registry(t)
	IncDaemonStart("wpa_supplicant")

	srv := httptest.NewServer(HandlerFor(reg))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), `stationprobe_daemon_starts_total{daemon="wpa_supplicant"}`) {
		t.Fatalf("expected daemon starts in exposition, got:\n%s", b)
	}
}

func TestRegisterBindsEveryRegistry(t *testing.T) {
	registry(t)
	other := prometheus.NewRegistry()
	if err := Register(other); err != nil {
		t.Fatalf("register second registry: %v", err)
	}
	ObserveCycle(3)

	for name, g := range map[string]prometheus.Gatherer{"first": registry(t), "second": other} {
		mfs, err := g.Gather()
		if err != nil {
			t.Fatalf("%s gather: %v", name, err)
		}
		found := false
		for _, mf := range mfs {
			if mf.GetName() == "stationprobe_scheduler_cycle_duration_seconds" {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s registry lacks the cycle histogram", name)
		}
	}
}
