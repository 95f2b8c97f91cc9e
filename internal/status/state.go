package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/gcsearch/internal/bus"
)

// State represents what the client currently knows about backend liveness.
type State string

const (
	Unknown State = "UNKNOWN"
	Probing State = "PROBING"
	Online  State = "ONLINE"
	Offline State = "OFFLINE"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Unknown: {Probing, Online, Offline},
	Probing: {Online, Offline},
	Online:  {Probing, Offline},
	Offline: {Probing, Online},
}

// Machine tracks backend liveness. Offline is informational: callers keep
// issuing requests and a later success moves the machine back to Online.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Unknown state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Unknown,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(to)
}

func (m *Machine) transitionLocked(to State) error {
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Publish(bus.NewEvent(bus.KindBackendStatusChanged, StatusChange{From: from, To: to}))
	return nil
}

// Settle moves to Online or Offline depending on reachable, doing nothing if
// the machine is already there.
func (m *Machine) Settle(reachable bool) {
	to := Offline
	if reachable {
		to = Online
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == to {
		return
	}
	_ = m.transitionLocked(to)
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
