package results

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/stationprobe/internal/station"
)

func TestNewStorePrepopulates(t *testing.T) {
	s := NewStore([]string{"b", "a"})
	snap := s.Snapshot()
	require.Len(t, snap.Stations, 2)
	assert.Equal(t, "b", snap.Stations[0].Station)
	assert.Equal(t, "a", snap.Stations[1].Station)
	assert.Equal(t, station.Result{}, snap.Stations[0].Result)
	assert.True(t, snap.LastCycleCompletedAt.IsZero())
}

func TestSetReplacesWholeResult(t *testing.T) {
	s := NewStore([]string{"lab"})
	s.Set("lab", station.Result{AssociationSucceeded: true, AssociationTime: 1.5, LeaseSucceeded: true, LeaseTime: 0.5})
	s.Set("lab", station.Result{AssociationSucceeded: true, AssociationTime: 2})

	r, ok := s.Get("lab")
	require.True(t, ok)
	assert.Equal(t, station.Result{AssociationSucceeded: true, AssociationTime: 2}, r)
}

func TestSetIgnoresUnknownStation(t *testing.T) {
	s := NewStore([]string{"lab"})
	s.Set("other", station.Result{ProbeSucceeded: true})
	_, ok := s.Get("other")
	assert.False(t, ok)
	assert.Len(t, s.Snapshot().Stations, 1)
}

func TestSnapshotIsImmutable(t *testing.T) {
	s := NewStore([]string{"lab"})
	before := s.Snapshot()
	s.Set("lab", station.Result{AssociationSucceeded: true})
	assert.False(t, before.Stations[0].Result.AssociationSucceeded)
	assert.True(t, s.Snapshot().Stations[0].Result.AssociationSucceeded)
}

func TestSinceLastCycle(t *testing.T) {
	s := NewStore(nil)
	time.Sleep(20 * time.Millisecond)
	assert.GreaterOrEqual(t, s.SinceLastCycle(), 20*time.Millisecond, "measured from creation before the first cycle")

	s.SetLastCycle(time.Now())
	assert.Less(t, s.SinceLastCycle(), 20*time.Millisecond)

	st, ok := s.Snapshot().Get("missing")
	assert.False(t, ok)
	assert.Empty(t, st.Station)
}

func TestConcurrentReadersSeeWholeResults(t *testing.T) {
	s := NewStore([]string{"lab"})
	full := station.Result{AssociationSucceeded: true, LeaseSucceeded: true, ProbeSucceeded: true}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				r, _ := s.Get("lab")
				if r != full && r != (station.Result{}) {
					t.Errorf("torn result %+v", r)
					return
				}
			}
		}()
	}
	for i := 0; i < 1000; i++ {
		if i%2 == 0 {
			s.Set("lab", full)
		} else {
			s.Set("lab", station.Result{})
		}
	}
	close(stop)
	wg.Wait()
}
