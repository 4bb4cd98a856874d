package server

// State is a position in the server's connection lifecycle
type State int32

const (
	// StateIdle - constructed, never started
	StateIdle State = iota

	// StateListening - channel open, waiting for a peer
	StateListening

	// StateConnected - peer attached, session being set up
	StateConnected

	// StateStreaming - send loop running
	StateStreaming

	// StateDisconnected - session ended, about to listen again
	StateDisconnected

	// StateStopped - stopped explicitly or by a fatal channel error
	StateStopped
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StateDisconnected:
		return "disconnected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
