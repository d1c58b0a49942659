package history

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/stationprobe/internal/station"
)

type memSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

func (m *memSink) Send(ctx context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("send without deadline")
	}
	m.events = append(m.events, e)
	return m.err
}

func (m *memSink) Close() error { m.closed = true; return nil }

func TestEventConstructors(t *testing.T) {
	res := station.Result{AssociationSucceeded: true, AssociationTime: 1}
	e := StationResult("lab", res)
	assert.Equal(t, EventStationResult, e.Type)
	assert.Equal(t, "lab", e.Station)
	assert.Equal(t, res, e.Result)
	assert.Equal(t, time.UTC, e.OccurredAt.Location())

	c := CycleComplete(1500 * time.Millisecond)
	assert.Equal(t, EventCycleComplete, c.Type)
	assert.Empty(t, c.Station)
	assert.InDelta(t, 1.5, c.CycleDuration, 1e-9)
}

func TestFlatten(t *testing.T) {
	row := Flatten(StationResult("lab", station.Result{LeaseSucceeded: true, LeaseTime: 0.25, Duration: 3}))
	assert.Equal(t, "station_result", row.Type)
	assert.Equal(t, "lab", row.Station)
	assert.True(t, row.LeaseSucceeded)
	assert.Equal(t, 3.0, row.Duration)
	assert.Len(t, row.Args(), 10)

	cyc := Flatten(CycleComplete(2 * time.Second))
	assert.Equal(t, 2.0, cyc.Duration)
}

func TestFanoutDeliversToAllSinksAndLogsErrors(t *testing.T) {
	var buf bytes.Buffer
	bad := &memSink{err: errors.New("unreachable")}
	good := &memSink{}
	f := NewFanout(slog.New(slog.NewTextHandler(&buf, nil)), bad, good)
	require.Equal(t, 2, f.Len())

	f.Record(context.Background(), StationResult("lab", station.Result{}))
	assert.Len(t, bad.events, 1)
	assert.Len(t, good.events, 1)
	assert.Contains(t, buf.String(), "history sink send failed")
	assert.Contains(t, buf.String(), "station=lab")

	require.NoError(t, f.Close())
	assert.True(t, bad.closed)
	assert.True(t, good.closed)
}

func TestNilFanout(t *testing.T) {
	var f *Fanout
	f.Record(context.Background(), CycleComplete(time.Second))
	assert.Equal(t, 0, f.Len())
	assert.NoError(t, f.Close())
}
