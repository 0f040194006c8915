package hotkey

// State is the coordinator's registration lifecycle.
type State int

const (
	Idle State = iota
	Registered
	ActiveHold
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Registered:
		return "registered"
	case ActiveHold:
		return "active_hold"
	default:
		return "unknown"
	}
}
