package rabbit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		from    State
		trigger trigger
		to      State
		ok      bool
	}{
		{StateDisconnected, triggerDial, StateConnecting, true},
		{StateDisconnected, triggerShutdown, StateClosing, true},
		{StateDisconnected, triggerLost, StateDisconnected, false},
		{StateDisconnected, triggerEstablished, StateDisconnected, false},
		{StateConnecting, triggerEstablished, StateConnected, true},
		{StateConnecting, triggerFailed, StateDisconnected, true},
		{StateConnecting, triggerShutdown, StateClosing, true},
		{StateConnecting, triggerDial, StateConnecting, false},
		{StateConnected, triggerLost, StateDisconnected, true},
		{StateConnected, triggerShutdown, StateClosing, true},
		{StateConnected, triggerDial, StateConnected, false},
		{StateClosing, triggerDial, StateClosing, false},
		{StateClosing, triggerEstablished, StateClosing, false},
		{StateClosing, triggerShutdown, StateClosing, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.trigger.String(), func(t *testing.T) {
			to, ok := nextState(tt.from, tt.trigger)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.to, to)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "state(9)", State(9).String())
}
