package station

import (
	"context"
	"log/slog"
	"time"
)

// Link is an acquired association.
type Link interface {
	Disconnect() error
}

// Lease is an acquired network address.
type Lease interface {
	Release() error
}

type Associator interface {
	Associate(dev string, st Spec, timeout time.Duration) (Link, error)
}

type Leaser interface {
	Acquire(dev string, timeout time.Duration) (Lease, error)
}

type Prober interface {
	Probe(ctx context.Context, dev, host string, timeout time.Duration) (time.Duration, error)
}

// Timeouts bound each stage.
type Timeouts struct {
	Association time.Duration
	Lease       time.Duration
	Probe       time.Duration
}

// Pipeline runs association, lease and reachability for one station at a
// time. Acquired resources are released innermost first on every path.
type Pipeline struct {
	Device     string
	Associator Associator
	Leaser     Leaser
	Prober     Prober
	Timeouts   Timeouts
	Logger     *slog.Logger
}

// Run tests st and always returns a result; stage errors are logged here and
// never propagate.
func (p *Pipeline) Run(ctx context.Context, st Spec) (res Result) {
	log := p.logger().With(slog.String("station", st.Name), slog.String("device", p.Device))
	began := time.Now()
	res.StartedAt = began
	defer func() { res.Duration = seconds(began) }()

	t := time.Now()
	link, err := p.Associator.Associate(p.Device, st, p.Timeouts.Association)
	if err != nil {
		log.Error("Failed to connect to WiFi", slog.String("stage", string(StageAssociation)), slog.Any("error", err))
		return res
	}
	res.AssociationSucceeded = true
	res.AssociationTime = seconds(t)
	defer teardown(log, StageAssociation, link.Disconnect)

	t = time.Now()
	lease, err := p.Leaser.Acquire(p.Device, p.Timeouts.Lease)
	if err != nil {
		log.Error("Failed to start DHCP", slog.String("stage", string(StageLease)), slog.Any("error", err))
		return res
	}
	res.LeaseSucceeded = true
	res.LeaseTime = seconds(t)
	defer teardown(log, StageLease, lease.Release)

	rtt, err := p.Prober.Probe(ctx, p.Device, st.PingHost, p.Timeouts.Probe)
	if err != nil {
		log.Error("Failed to ping host", slog.String("stage", string(StageProbe)), slog.Any("error", err))
		return res
	}
	res.ProbeSucceeded = true
	res.ProbeLatency = rtt.Seconds()
	log.Info("Successful connection, DHCP and ping test",
		slog.Float64("association_time", res.AssociationTime),
		slog.Float64("lease_time", res.LeaseTime),
		slog.Float64("probe_latency", res.ProbeLatency))
	return res
}

func teardown(log *slog.Logger, stage Stage, release func() error) {
	if err := release(); err != nil {
		log.Error("teardown failed", slog.String("stage", string(stage)), slog.Any("error", err))
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
