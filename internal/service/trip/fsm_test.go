package trip

import (
	"strings"
	"testing"

	"github.com/safarigo/ridehail/internal/domain/types"
)

func TestHappyPathTransitions(t *testing.T) {
	path := []types.TripState{
		types.StateCreated,
		types.StateMatching,
		types.StateDriverAssigned,
		types.StateDriverArriving,
		types.StatePinVerification,
		types.StateInProgress,
		types.StateCompleted,
	}
	for i := 0; i < len(path)-1; i++ {
		if err := AssertTransition(path[i], path[i+1]); err != nil {
			t.Fatalf("step %s -> %s: %v", path[i], path[i+1], err)
		}
	}
}

func TestSkippingPinVerification(t *testing.T) {
	if !CanTransition(types.StateDriverArriving, types.StateInProgress) {
		t.Fatal("trips without a PIN must start straight from DRIVER_ARRIVING")
	}
}

func TestRejectedTransitions(t *testing.T) {
	cases := []struct {
		from, to types.TripState
	}{
		{types.StateCreated, types.StateInProgress},
		{types.StateCreated, types.StateCompleted},
		{types.StateMatching, types.StateInProgress},
		{types.StateInProgress, types.StateCancelledByPassenger},
		{types.StateCompleted, types.StateMatching},
		{types.StateNoDriverFound, types.StateMatching},
		{types.StateCancelledByPassenger, types.StateCreated},
	}
	for _, c := range cases {
		if CanTransition(c.from, c.to) {
			t.Fatalf("transition %s -> %s should be rejected", c.from, c.to)
		}
	}
}

func TestAssertTransitionErrorNamesStates(t *testing.T) {
	err := AssertTransition(types.StateCompleted, types.StateMatching)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "COMPLETED") || !strings.Contains(err.Error(), "MATCHING") {
		t.Fatalf("error does not name both states: %v", err)
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := []types.TripState{
		types.StateCompleted,
		types.StateCancelledByPassenger,
		types.StateCancelledByDriver,
		types.StateNoDriverFound,
	}
	for _, st := range terminal {
		if !IsTerminal(st) {
			t.Fatalf("%s should be terminal", st)
		}
	}
	if types.StateCancelledByPassenger.String() != "CANCELLED_BY_PASSENGER" {
		t.Fatalf("unexpected wire value %s", types.StateCancelledByPassenger)
	}
	if IsTerminal(types.StateInProgress) {
		t.Fatal("IN_PROGRESS should not be terminal")
	}
}

func TestRiderCannotCancelInProgress(t *testing.T) {
	for _, next := range AllowedTransitions(types.StateInProgress) {
		if next == types.StateCancelledByPassenger {
			t.Fatal("passenger cancellation must be impossible once the trip is in progress")
		}
	}
}
