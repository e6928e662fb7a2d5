package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runar-labs/runar-node/errors"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestStateMachineHappyPath(t *testing.T) {
	m := NewStateMachine()
	assert.Equal(t, StateCreated, m.State())

	require.NoError(t, m.Transition(StateInitialized))
	require.NoError(t, m.Transition(StateRunning))
	require.NoError(t, m.Transition(StateStopped))
	assert.Equal(t, StateStopped, m.State())
}

func TestStateMachineRejectsIllegalMoves(t *testing.T) {
	tests := []struct {
		name string
		walk []State
		to   State
	}{
		{"skip init", nil, StateRunning},
		{"re-create", nil, StateCreated},
		{"restart after stop", []State{StateInitialized, StateRunning, StateStopped}, StateRunning},
		{"re-init after stop", []State{StateStopped}, StateInitialized},
		{"double init", []State{StateInitialized}, StateInitialized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStateMachine()
			for _, s := range tt.walk {
				require.NoError(t, m.Transition(s))
			}
			before := m.State()

			err := m.Transition(tt.to)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidTransition))

			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, before, te.From)
			assert.Equal(t, tt.to, te.To)
			assert.Equal(t, before, m.State(), "failed transition must not move state")
		})
	}
}

func TestStopLegalFromAnyLiveState(t *testing.T) {
	for _, walk := range [][]State{
		nil,
		{StateInitialized},
		{StateInitialized, StateRunning},
	} {
		m := NewStateMachine()
		for _, s := range walk {
			require.NoError(t, m.Transition(s))
		}
		assert.NoError(t, m.Transition(StateStopped))
	}
}
