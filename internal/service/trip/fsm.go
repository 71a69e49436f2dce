package trip

import (
	"fmt"

	"github.com/safarigo/ridehail/internal/domain/types"
)

// transitions is the single source of truth for the trip lifecycle.
// A state absent from the map is terminal.
var transitions = map[types.TripState][]types.TripState{
	types.StateCreated: {
		types.StateMatching,
		types.StateCancelledByPassenger,
	},
	types.StateMatching: {
		types.StateDriverAssigned,
		types.StateNoDriverFound,
		types.StateCancelledByPassenger,
	},
	types.StateDriverAssigned: {
		types.StateDriverArriving,
		types.StateCancelledByPassenger,
		types.StateCancelledByDriver,
	},
	types.StateDriverArriving: {
		types.StatePinVerification,
		types.StateInProgress,
		types.StateCancelledByPassenger,
		types.StateCancelledByDriver,
	},
	types.StatePinVerification: {
		types.StateInProgress,
		types.StateCancelledByPassenger,
		types.StateCancelledByDriver,
	},
	types.StateInProgress: {
		types.StateCompleted,
		types.StateCancelledByDriver,
	},
}

// CanTransition reports whether from may move directly to to.
func CanTransition(from, to types.TripState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AssertTransition returns an error naming both states when the move
// is not allowed.
func AssertTransition(from, to types.TripState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w from %s to %s", types.ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminal reports whether no further transitions exist from state.
func IsTerminal(state types.TripState) bool {
	return len(transitions[state]) == 0
}

// AllowedTransitions returns the states reachable from state in one
// step. The returned slice is a copy.
func AllowedTransitions(state types.TripState) []types.TripState {
	next := transitions[state]
	out := make([]types.TripState, len(next))
	copy(out, next)
	return out
}
