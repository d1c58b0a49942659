package station

import "time"

// Stage names a pipeline step.
type Stage string

const (
	StageAssociation Stage = "association"
	StageLease       Stage = "lease"
	StageProbe       Stage = "probe"
)

// Result is the outcome of one pipeline run. Zero values mean the stage was
// not reached; a stage time is only meaningful when its flag is set.
type Result struct {
	AssociationSucceeded bool    `json:"associationSucceeded"`
	AssociationTime      float64 `json:"associationTime"`
	LeaseSucceeded       bool    `json:"leaseSucceeded"`
	LeaseTime            float64 `json:"leaseRetrievalTime"`
	ProbeSucceeded       bool    `json:"probeSucceeded"`
	ProbeLatency         float64 `json:"probeLatency"`

	StartedAt time.Time `json:"startedAt"`
	Duration  float64   `json:"duration"`
}

// Reached returns the last stage that succeeded, or "" when association failed.
func (r Result) Reached() Stage {
	switch {
	case r.ProbeSucceeded:
		return StageProbe
	case r.LeaseSucceeded:
		return StageLease
	case r.AssociationSucceeded:
		return StageAssociation
	default:
		return ""
	}
}

// Consistent reports whether no later stage succeeded after an earlier one failed.
func (r Result) Consistent() bool {
	if r.LeaseSucceeded && !r.AssociationSucceeded {
		return false
	}
	if r.ProbeSucceeded && !r.LeaseSucceeded {
		return false
	}
	return true
}

func seconds(since time.Time) float64 { return time.Since(since).Seconds() }
