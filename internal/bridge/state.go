package bridge

import "github.com/droidcore/sdkbridge/internal/event"

// State is the coordinator's position in the connect protocol.
type State int

const (
	// StateIdle indicates no connection attempt has run yet.
	StateIdle State = iota

	// StateConnecting indicates a worker is starting the server and
	// polling for a connection.
	StateConnecting

	// StateAwaitingChoice indicates the wait ceiling elapsed and the
	// prompter has been asked how to proceed.
	StateAwaitingChoice

	// StateRetrying indicates a restart was chosen and a fresh attempt
	// is about to begin.
	StateRetrying

	// StateConnected indicates the server answered.
	StateConnected

	// StateFailed indicates the attempt completed without a connection.
	StateFailed

	// StateCanceled indicates the attempt was abandoned, either by the
	// caller's context or by an explicit cancel choice.
	StateCanceled
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAwaitingChoice:
		return "awaiting_choice"
	case StateRetrying:
		return "retrying"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Phase maps the state onto the event bus vocabulary.
func (s State) Phase() event.BridgePhase {
	switch s {
	case StateConnecting:
		return event.BridgePhaseConnecting
	case StateAwaitingChoice:
		return event.BridgePhaseAwaitingChoice
	case StateRetrying:
		return event.BridgePhaseRetrying
	case StateConnected:
		return event.BridgePhaseConnected
	case StateFailed:
		return event.BridgePhaseFailed
	case StateCanceled:
		return event.BridgePhaseCanceled
	default:
		return event.BridgePhaseIdle
	}
}
