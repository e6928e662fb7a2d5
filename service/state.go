package service

import (
	"fmt"
	"sync"

	"github.com/runar-labs/runar-node/errors"
)

// State represents the lifecycle state of a service or node
type State int

const (
	// StateCreated is the initial state after construction
	StateCreated State = iota
	// StateInitialized means init completed and resources are wired
	StateInitialized
	// StateRunning means the component is accepting work
	StateRunning
	// StateStopped is terminal; a stopped component is never restarted
	StateStopped
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// transitions is the set of legal lifecycle moves. Stopping is legal from
// every non-terminal state; everything else advances one step at a time.
var transitions = map[State][]State{
	StateCreated:     {StateInitialized, StateStopped},
	StateInitialized: {StateRunning, StateStopped},
	StateRunning:     {StateStopped},
	StateStopped:     {},
}

// TransitionError reports an illegal lifecycle move
type TransitionError struct {
	From State
	To   State
}

// Error implements the error interface
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", errors.ErrInvalidTransition, e.From, e.To)
}

// Unwrap lets callers match with errors.Is(err, errors.ErrInvalidTransition)
func (e *TransitionError) Unwrap() error {
	return errors.ErrInvalidTransition
}

// StateMachine guards lifecycle state with a total transition function:
// every requested move either succeeds or returns a TransitionError, so
// callers never observe a skipped or reversed state.
type StateMachine struct {
	mu    sync.RWMutex
	state State
}

// NewStateMachine returns a machine in StateCreated
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateCreated}
}

// State returns the current state
func (m *StateMachine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Transition moves to the target state if the move is legal
func (m *StateMachine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, allowed := range transitions[m.state] {
		if allowed == to {
			m.state = to
			return nil
		}
	}
	return &TransitionError{From: m.state, To: to}
}
