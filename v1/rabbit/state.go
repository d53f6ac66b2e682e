package rabbit

import "fmt"

// State is the connection manager state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type trigger int

const (
	triggerDial trigger = iota
	triggerEstablished
	triggerFailed
	triggerLost
	triggerShutdown
)

func (t trigger) String() string {
	switch t {
	case triggerDial:
		return "dial"
	case triggerEstablished:
		return "established"
	case triggerFailed:
		return "failed"
	case triggerLost:
		return "lost"
	case triggerShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// transitions is the complete table. Closing is terminal.
var transitions = map[State]map[trigger]State{
	StateDisconnected: {
		triggerDial:     StateConnecting,
		triggerShutdown: StateClosing,
	},
	StateConnecting: {
		triggerEstablished: StateConnected,
		triggerFailed:      StateDisconnected,
		triggerShutdown:    StateClosing,
	},
	StateConnected: {
		triggerLost:     StateDisconnected,
		triggerShutdown: StateClosing,
	},
	StateClosing: {},
}

// nextState looks up the transition for t in state from.
func nextState(from State, t trigger) (State, bool) {
	to, ok := transitions[from][t]
	return to, ok
}
