package punch

// State is where a terminal is in the punch flow. A failed submission
// returns to StateAwaitingConfirmation so the operator can retry.
type State int

const (
	StateIdle State = iota
	StateAcquiringLocation
	StateCapturingEvidence
	StateAwaitingConfirmation
	StateConfirming
	StateRecorded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiringLocation:
		return "acquiring_location"
	case StateCapturingEvidence:
		return "capturing_evidence"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateConfirming:
		return "confirming"
	case StateRecorded:
		return "recorded"
	}
	return "unknown"
}
