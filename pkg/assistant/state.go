package assistant

import "fmt"

// State is the lifecycle state of a Controller. All transitions happen on
// the controller's single orchestration goroutine.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StateStreaming
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsActive returns true when a cycle is in flight.
func (s State) IsActive() bool {
	switch s {
	case StateRecording, StateTranscribing, StateStreaming:
		return true
	default:
		return false
	}
}
