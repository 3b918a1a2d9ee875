package workflow

import (
	"fmt"

	"github.com/siades/backend/internal/domain/apperr"
)

// transitions is the legal-transition table for letter requests:
//
//	pending  --VERIFY-->  verified
//	verified --APPROVE--> approved (terminal)
//	pending  --REJECT-->  rejected (terminal)
//	verified --REJECT-->  rejected (terminal)
var transitions = map[State]map[Trigger]State{
	StatePending: {
		TriggerVerify: StateVerified,
		TriggerReject: StateRejected,
	},
	StateVerified: {
		TriggerApprove: StateApproved,
		TriggerReject:  StateRejected,
	},
}

// Next returns the state reached by firing trigger from the given state.
// Any (state, trigger) pair outside the transition table fails with
// apperr.ErrInvalidTransition; no mutation has been attempted at that point.
func Next(from State, trigger Trigger) (State, error) {
	permitted, ok := transitions[from]
	if !ok {
		return "", fmt.Errorf("%w: cannot fire %s from state %s", apperr.ErrInvalidTransition, trigger, from)
	}

	to, ok := permitted[trigger]
	if !ok {
		return "", fmt.Errorf("%w: cannot fire %s from state %s", apperr.ErrInvalidTransition, trigger, from)
	}

	return to, nil
}

// CanFire returns true if the trigger is permitted from the given state
func CanFire(from State, trigger Trigger) bool {
	_, err := Next(from, trigger)
	return err == nil
}

// PermittedTriggers returns all triggers that can be fired from the given state
func PermittedTriggers(from State) []Trigger {
	permitted, ok := transitions[from]
	if !ok {
		return nil
	}

	triggers := make([]Trigger, 0, len(permitted))
	for trigger := range permitted {
		triggers = append(triggers, trigger)
	}
	return triggers
}
