// Package scheduler runs the station pipeline for every configured station,
// one station at a time, on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loykin/stationprobe/internal/history"
	"github.com/loykin/stationprobe/internal/metrics"
	"github.com/loykin/stationprobe/internal/results"
	"github.com/loykin/stationprobe/internal/station"
)

// Runner tests one station. *station.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, st station.Spec) station.Result
}

// Scheduler owns the results store: it is the only writer.
// Non-overlap: a trigger that arrives while a cycle is running is dropped.
type Scheduler struct {
	interval time.Duration
	stations []station.Spec
	runner   Runner
	store    *results.Store
	history  *history.Fanout
	logger   *slog.Logger

	running atomic.Bool
	quit    chan struct{}
	cycles  sync.WaitGroup
	loop    sync.WaitGroup
	stopped sync.Once
}

type Options struct {
	Interval time.Duration
	Stations []station.Spec
	Runner   Runner
	Store    *results.Store
	History  *history.Fanout // optional
	Logger   *slog.Logger
}

func New(o Options) *Scheduler {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Scheduler{
		interval: o.Interval,
		stations: o.Stations,
		runner:   o.Runner,
		store:    o.Store,
		history:  o.History,
		logger:   o.Logger,
	}
}

// RunCycle runs one full cycle in the calling goroutine and reports whether
// it ran. It returns false at once when another cycle is in flight.
func (s *Scheduler) RunCycle(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		metrics.IncCycle(metrics.CycleDropped)
		s.logger.Debug("probe cycle still running, trigger dropped")
		return false
	}
	defer s.running.Store(false)

	began := time.Now()
	for _, st := range s.stations {
		if s.stopping() {
			metrics.IncCycle(metrics.CycleInterrupted)
			s.logger.Info("probe cycle interrupted by shutdown", slog.String("next_station", st.Name))
			return true
		}
		res := s.runner.Run(ctx, st)
		s.store.Set(st.Name, res)
		s.history.Record(ctx, history.StationResult(st.Name, res))
	}

	took := time.Since(began)
	s.store.SetLastCycle(time.Now())
	s.history.Record(ctx, history.CycleComplete(took))
	metrics.IncCycle(metrics.CycleCompleted)
	metrics.ObserveCycle(took.Seconds())
	s.logger.Info("probe cycle complete", slog.Int("stations", len(s.stations)), slog.Duration("took", took))
	return true
}

// Running reports whether a cycle is in flight.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Start triggers a cycle immediately and then every interval. The interval is
// not adjusted for cycle duration; overlapping triggers are dropped.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler interval must be > 0")
	}
	if s.quit != nil {
		return errors.New("scheduler already started")
	}
	s.quit = make(chan struct{})

	s.loop.Add(1)
	go func() {
		defer s.loop.Done()
		t := time.NewTicker(s.interval)
		defer t.Stop()
		s.trigger(ctx)
		for {
			select {
			case <-s.quit:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				s.trigger(ctx)
			}
		}
	}()
	return nil
}

// trigger runs a cycle in its own goroutine so the ticker keeps firing while
// a long cycle is in flight.
func (s *Scheduler) trigger(ctx context.Context) {
	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		s.RunCycle(ctx)
	}()
}

// Stop cancels future triggers and waits for the in-flight cycle. The cycle
// finishes its current station and skips the rest.
func (s *Scheduler) Stop() {
	if s.quit == nil {
		return
	}
	s.stopped.Do(func() { close(s.quit) })
	s.loop.Wait()
	s.cycles.Wait()
}

func (s *Scheduler) stopping() bool {
	if s.quit == nil {
		return false
	}
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}
