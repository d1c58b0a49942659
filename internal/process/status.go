package process

// State is the lifecycle position of a Handle. Transitions only move forward:
// Starting -> Ready -> Stopping -> Stopped, or Starting|Ready -> Failed.
type State int32

const (
	StateStarting State = iota
	StateReady
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
