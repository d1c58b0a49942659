// Package results holds the latest station results and exposes them to
// Prometheus. A single writer (the scheduler) replaces whole snapshots; readers
// never take a lock.
package results

import (
	"sync/atomic"
	"time"

	"github.com/loykin/stationprobe/internal/station"
)

// StationStatus is one station's latest result.
type StationStatus struct {
	Station string         `json:"station"`
	Result  station.Result `json:"result"`
}

// Snapshot is an immutable view of the store.
type Snapshot struct {
	Stations             []StationStatus `json:"stations"`
	LastCycleCompletedAt time.Time       `json:"lastCycleCompletedAt"`
}

// Get returns the entry for name.
func (s Snapshot) Get(name string) (StationStatus, bool) {
	for _, st := range s.Stations {
		if st.Station == name {
			return st, true
		}
	}
	return StationStatus{}, false
}

type state struct {
	results   map[string]station.Result
	lastCycle time.Time
}

// Store maps station names to their latest result.
type Store struct {
	order   []string
	started time.Time
	cur     atomic.Pointer[state]
}

// NewStore pre-populates a zero result for every name, in the given order.
func NewStore(names []string) *Store {
	s := &Store{order: append([]string(nil), names...), started: time.Now()}
	m := make(map[string]station.Result, len(names))
	for _, n := range names {
		m[n] = station.Result{}
	}
	s.cur.Store(&state{results: m})
	return s
}

// Set replaces the result of a configured station. Unknown names are ignored.
// Only one goroutine may write.
func (s *Store) Set(name string, res station.Result) {
	old := s.cur.Load()
	if _, ok := old.results[name]; !ok {
		return
	}
	m := make(map[string]station.Result, len(old.results))
	for k, v := range old.results {
		m[k] = v
	}
	m[name] = res
	s.cur.Store(&state{results: m, lastCycle: old.lastCycle})
}

// SetLastCycle records the completion time of a full cycle.
func (s *Store) SetLastCycle(t time.Time) {
	old := s.cur.Load()
	s.cur.Store(&state{results: old.results, lastCycle: t})
}

// Snapshot returns the current results in configured order.
func (s *Store) Snapshot() Snapshot {
	cur := s.cur.Load()
	out := Snapshot{Stations: make([]StationStatus, 0, len(s.order)), LastCycleCompletedAt: cur.lastCycle}
	for _, n := range s.order {
		out.Stations = append(out.Stations, StationStatus{Station: n, Result: cur.results[n]})
	}
	return out
}

// Get returns the latest result of one station.
func (s *Store) Get(name string) (station.Result, bool) {
	r, ok := s.cur.Load().results[name]
	return r, ok
}

// SinceLastCycle is the time since the last completed cycle, or since the
// store was created when no cycle has completed yet.
func (s *Store) SinceLastCycle() time.Duration {
	last := s.cur.Load().lastCycle
	if last.IsZero() {
		return time.Since(s.started)
	}
	return time.Since(last)
}
