package call

import (
	"errors"
	"fmt"
)

type State int

const (
	Idle State = iota
	Calling
	Ringing
	Active
)

var ErrInvalidTransition = errors.New("invalid transition")

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Calling:
		return "calling"
	case Ringing:
		return "ringing"
	case Active:
		return "active"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions lists allowed moves, hang-up to Idle is allowed from anywhere.
var transitions = map[State][]State{
	Idle:    {Calling, Ringing},
	Calling: {Active, Idle},
	Ringing: {Active, Idle},
	Active:  {Idle},
}

func (s State) can(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s State) to(next State) (State, error) {
	if !s.can(next) {
		return s, fmt.Errorf("%w: %v -> %v", ErrInvalidTransition, s, next)
	}
	return next, nil
}
