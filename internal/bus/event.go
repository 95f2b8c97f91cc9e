package bus

import "time"

// Event kinds published by the client. Subscribers filter by prefix
// ("state.", "pager.", "search.", "backend.").
const (
	KindStateChanged         = "state.changed"
	KindPagerPhaseChanged    = "pager.phase_changed"
	KindSearchCompleted      = "search.completed"
	KindBackendStatusChanged = "backend.status_changed"
)

// Event represents a client event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
