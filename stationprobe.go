// Package stationprobe wires the station pipeline, the scheduler, the results
// store and the HTTP surface into one embeddable probe.
package stationprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	cfg "github.com/loykin/stationprobe/internal/config"
	"github.com/loykin/stationprobe/internal/dhcp"
	"github.com/loykin/stationprobe/internal/history"
	"github.com/loykin/stationprobe/internal/history/factory"
	"github.com/loykin/stationprobe/internal/logger"
	"github.com/loykin/stationprobe/internal/metrics"
	"github.com/loykin/stationprobe/internal/ping"
	"github.com/loykin/stationprobe/internal/results"
	"github.com/loykin/stationprobe/internal/scheduler"
	"github.com/loykin/stationprobe/internal/server"
	"github.com/loykin/stationprobe/internal/station"
	ptls "github.com/loykin/stationprobe/internal/tls"
	"github.com/loykin/stationprobe/internal/wifi"
)

// Re-export core types for external consumers.

type Config = cfg.Config

type StationSpec = station.Spec

type StationResult = station.Result

type Snapshot = results.Snapshot

// LoadConfig reads the environment tunables and the station file.
// path overrides CONFIG_FILE when non-empty.
func LoadConfig(path string) (Config, error) { return cfg.Load(path) }

// NewLogger builds the logger described by the log section of c. The closer
// releases the rotated log file.
func NewLogger(c Config, console io.Writer) (*slog.Logger, io.Closer) {
	lc := logger.Config{
		Slog: logger.SlogConfig{
			Level:      logger.Level(c.Log.Level),
			Format:     logger.Format(c.Log.Format),
			Color:      c.Log.Color,
			TimeStamps: true,
		},
		File: logger.FileConfig{
			Path:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
			Compress:   c.Log.Compress,
		},
	}
	return lc.NewSlogger(console)
}

// Probe is a configured station probe.
type Probe struct {
	cfg      Config
	log      *slog.Logger
	store    *results.Store
	registry *prometheus.Registry
	history  *history.Fanout
	sched    *scheduler.Scheduler

	mu  sync.Mutex
	srv *server.Server
}

// New builds every component from c. History sinks are opened here; a sink
// that cannot be opened is a startup error.
func New(c Config, log *slog.Logger) (*Probe, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := c.FileConfig.Validate(); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	store := results.NewStore(c.StationNames())
	if err := reg.Register(results.NewCollector(store)); err != nil {
		return nil, fmt.Errorf("register results collector: %w", err)
	}
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	_ = reg.Register(collectors.NewGoCollector())
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hist, err := factory.NewFanout(c.History.Sinks, log)
	if err != nil {
		return nil, err
	}

	pipeline := &station.Pipeline{
		Device: c.Interface,
		Associator: station.WiFi{Supplicant: wifi.NewSupplicant(wifi.Config{
			Binary:    c.Daemons.Supplicant,
			TempDir:   c.Daemons.TempDir,
			KillGrace: c.Daemons.KillGrace,
		}, log)},
		Leaser: station.DHCP{Client: dhcp.NewClient(dhcp.Config{
			Binary:    c.Daemons.DHClient,
			KillGrace: c.Daemons.KillGrace,
		}, log)},
		Prober: ping.NewProber(ping.Config{
			Binary: c.Daemons.Ping,
			Policy: ping.Policy{Attempts: c.Probe.Attempts},
		}, log),
		Timeouts: station.Timeouts{
			Association: c.WifiConnectTimeout,
			Lease:       c.DHCPRetrievalTimeout,
			Probe:       c.PingTimeout,
		},
		Logger: log,
	}

	return &Probe{
		cfg:      c,
		log:      log,
		store:    store,
		registry: reg,
		history:  hist,
		sched: scheduler.New(scheduler.Options{
			Interval: c.Interval,
			Stations: c.Stations,
			Runner:   pipeline,
			Store:    store,
			History:  hist,
			Logger:   log,
		}),
	}, nil
}

// RunOnce runs a single cycle and returns the resulting snapshot.
func (p *Probe) RunOnce(ctx context.Context) Snapshot {
	p.sched.RunCycle(ctx)
	return p.store.Snapshot()
}

// Snapshot returns the latest results.
func (p *Probe) Snapshot() Snapshot { return p.store.Snapshot() }

// Gatherer exposes the probe's metrics registry.
func (p *Probe) Gatherer() prometheus.Gatherer { return p.registry }

// Start serves HTTP on the configured port and starts the scheduler.
func (p *Probe) Start(ctx context.Context) error {
	tlsCfg, err := ptls.Setup(ptls.ServerConfig{
		CertFile:   p.cfg.Server.TLSCert,
		KeyFile:    p.cfg.Server.TLSKey,
		MinVersion: p.cfg.Server.TLSMinVersion,
	})
	if err != nil {
		return err
	}
	addr := net.JoinHostPort("", strconv.Itoa(p.cfg.Port))
	h := server.NewRouter(p.store, p.registry, "/api").Handler()
	srv, err := server.NewServer(addr, h, tlsCfg, p.log)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	p.mu.Lock()
	p.srv = srv
	p.mu.Unlock()

	if err := p.sched.Start(ctx); err != nil {
		_ = srv.Shutdown(ctx)
		return err
	}
	p.log.Info("station probe started",
		slog.Int("stations", len(p.cfg.Stations)),
		slog.Duration("interval", p.cfg.Interval),
		slog.String("interface", p.cfg.Interface))
	return nil
}

// Addr returns the HTTP listen address once Start has succeeded.
func (p *Probe) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.srv == nil {
		return ""
	}
	return p.srv.Addr()
}

// Shutdown stops the scheduler, waiting for the station in flight, then the
// HTTP server, then closes the history sinks.
func (p *Probe) Shutdown(ctx context.Context) error {
	p.sched.Stop()
	var errs []error
	p.mu.Lock()
	srv := p.srv
	p.srv = nil
	p.mu.Unlock()
	if srv != nil {
		errs = append(errs, srv.Shutdown(ctx))
	}
	errs = append(errs, p.history.Close())
	return errors.Join(errs...)
}
