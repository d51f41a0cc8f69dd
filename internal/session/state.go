// Package session owns conversation lifecycles: one worker goroutine per
// session drives the translate, query and advice pipeline for each turn,
// strictly serialized within the session and fully concurrent across
// sessions.
package session

import (
	"fmt"
)

// State is a session lifecycle state.
type State string

const (
	StateAuthenticating      State = "authenticating"
	StateActive              State = "active"
	StateAwaitingTranslation State = "awaiting_translation"
	StateAwaitingQuery       State = "awaiting_query"
	StateAwaitingAdvice      State = "awaiting_advice"
	StateResponding          State = "responding"
	StateClosing             State = "closing"
	StateClosed              State = "closed"
)

// transitions defines the valid state graph. Closing is reachable from every
// non-terminal state because disconnects and faults can happen at any point.
var transitions = map[State][]State{
	StateAuthenticating:      {StateActive, StateClosed},
	StateActive:              {StateAwaitingTranslation, StateClosing},
	StateAwaitingTranslation: {StateAwaitingQuery, StateAwaitingAdvice, StateResponding, StateActive, StateClosing},
	StateAwaitingQuery:       {StateAwaitingAdvice, StateResponding, StateActive, StateClosing},
	StateAwaitingAdvice:      {StateResponding, StateActive, StateClosing},
	StateResponding:          {StateActive, StateClosing},
	StateClosing:             {StateClosed},
	StateClosed:              {},
}

// CanTransition reports whether moving from one state to another is valid.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a state has no outgoing transitions.
func IsTerminal(s State) bool {
	valid, ok := transitions[s]
	return ok && len(valid) == 0
}

// transition moves the session to a new state, panicking on an invalid move.
// Transitions are driven only by the owning worker and Close, so an invalid
// move is a programming error, not a runtime condition.
func (s *Session) transition(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitionLocked(to)
}

func (s *Session) transitionLocked(to State) {
	if !CanTransition(s.state, to) {
		panic(fmt.Sprintf("invalid session transition %s -> %s", s.state, to))
	}
	s.state = to
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
