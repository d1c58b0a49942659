package history

import (
	"context"
	"time"

	"github.com/loykin/stationprobe/internal/station"
)

// EventType defines the kind of probe event.
type EventType string

const (
	EventStationResult EventType = "station_result"
	EventCycleComplete EventType = "cycle_complete"
)

// Event represents a probe outcome to be exported to external systems.
// Station and Result are empty for EventCycleComplete; CycleDuration is only
// set for it.
type Event struct {
	Type          EventType      `json:"type"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Station       string         `json:"station,omitempty"`
	Result        station.Result `json:"result"`
	CycleDuration float64        `json:"cycle_duration,omitempty"`
}

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// StationResult builds the event recorded after one station run.
func StationResult(name string, r station.Result) Event {
	return Event{Type: EventStationResult, OccurredAt: time.Now().UTC(), Station: name, Result: r}
}

// CycleComplete builds the event recorded after a full cycle.
func CycleComplete(took time.Duration) Event {
	return Event{Type: EventCycleComplete, OccurredAt: time.Now().UTC(), CycleDuration: took.Seconds()}
}
