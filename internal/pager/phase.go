package pager

import (
	"fmt"
	"slices"
)

// Phase is the lifecycle state of the message window.
type Phase string

const (
	Idle    Phase = "IDLE"
	Loading Phase = "LOADING"
	Loaded  Phase = "LOADED"
)

// validTransitions defines allowed phase changes. Loading -> Loading happens
// when a newer request supersedes one still in flight.
var validTransitions = map[Phase][]Phase{
	Idle:    {Loading},
	Loading: {Loading, Loaded, Idle},
	Loaded:  {Loading, Idle},
}

// CanTransition reports whether the window may move from one phase to another.
func CanTransition(from, to Phase) bool {
	return slices.Contains(validTransitions[from], to)
}

func checkTransition(from, to Phase) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid window transition from %s to %s", from, to)
	}
	return nil
}

// PhaseChange is the payload of pager.phase_changed events.
type PhaseChange struct {
	PII    string
	Anchor string
	From   Phase
	To     Phase
}
