package connection

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected State = iota

	// StateConnecting indicates the transport is being opened.
	StateConnecting

	// StateAuthenticating indicates the transport is open and the
	// handshake is in progress.
	StateAuthenticating

	// StateConnected indicates a completed handshake.
	StateConnected

	// StateError indicates a failed attempt; a reconnect is pending.
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from s to next is a legal step of the
// state machine. Disconnecting is legal from every state.
func (s State) CanTransition(next State) bool {
	if next == StateDisconnected {
		return true
	}
	switch s {
	case StateDisconnected:
		return next == StateConnecting
	case StateConnecting:
		return next == StateAuthenticating || next == StateError
	case StateAuthenticating:
		return next == StateConnected || next == StateError
	case StateConnected:
		return next == StateError
	case StateError:
		return next == StateConnecting
	default:
		return false
	}
}
