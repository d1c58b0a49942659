package history

import "time"

// Table is the default table (or index) name used by the sinks.
const Table = "probe_history"

// Row is the flat form of an Event stored by the SQL sinks and indexed by
// OpenSearch.
type Row struct {
	OccurredAt           time.Time `json:"occurred_at"`
	Type                 string    `json:"type"`
	Station              string    `json:"station,omitempty"`
	AssociationSucceeded bool      `json:"association_succeeded"`
	AssociationTime      float64   `json:"association_time"`
	LeaseSucceeded       bool      `json:"lease_succeeded"`
	LeaseTime            float64   `json:"lease_time"`
	ProbeSucceeded       bool      `json:"probe_succeeded"`
	ProbeLatency         float64   `json:"probe_latency"`
	Duration             float64   `json:"duration"`
}

// Flatten converts e into a Row. Cycle events carry the cycle duration.
func Flatten(e Event) Row {
	r := e.Result
	row := Row{
		OccurredAt:           e.OccurredAt.UTC(),
		Type:                 string(e.Type),
		Station:              e.Station,
		AssociationSucceeded: r.AssociationSucceeded,
		AssociationTime:      r.AssociationTime,
		LeaseSucceeded:       r.LeaseSucceeded,
		LeaseTime:            r.LeaseTime,
		ProbeSucceeded:       r.ProbeSucceeded,
		ProbeLatency:         r.ProbeLatency,
		Duration:             r.Duration,
	}
	if e.Type == EventCycleComplete {
		row.Duration = e.CycleDuration
	}
	return row
}

// Args returns the row values in column order.
func (r Row) Args() []any {
	return []any{
		r.OccurredAt, r.Type, r.Station,
		r.AssociationSucceeded, r.AssociationTime,
		r.LeaseSucceeded, r.LeaseTime,
		r.ProbeSucceeded, r.ProbeLatency,
		r.Duration,
	}
}

// Columns lists the column names matching Args.
const Columns = "occurred_at, type, station, association_succeeded, association_time, lease_succeeded, lease_time, probe_succeeded, probe_latency, duration"
