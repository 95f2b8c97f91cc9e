package coordinator

import (
	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/pager"
	"github.com/matheus3301/gcsearch/internal/search"
	"github.com/matheus3301/gcsearch/internal/status"
)

// Slot names the part of the state a commit replaced.
type Slot string

const (
	SlotDirectory   Slot = "directory"
	SlotCurrentUser Slot = "current_user"
	SlotSearch      Slot = "search"
	SlotWindow      Slot = "window"
	SlotBackend     Slot = "backend"
	SlotStatus      Slot = "status"
)

// Change is the payload of state.changed events.
type Change struct {
	Slot Slot
}

// State is a snapshot of everything the client shows.
type State struct {
	Platform         backend.Platform
	Conversations    []backend.Conversation
	DirectoryLoading bool
	CurrentUser      backend.CurrentUser

	SearchQuery string
	SearchMode  search.Mode
	Results     []backend.SearchResult
	Searching   bool

	Window  pager.Window
	Backend status.State
	// Status is a human readable message about the last failure, empty when
	// the last operation succeeded.
	Status string
}

func (s State) clone() State {
	if s.Conversations != nil {
		s.Conversations = append([]backend.Conversation(nil), s.Conversations...)
	}
	if s.Results != nil {
		s.Results = append([]backend.SearchResult(nil), s.Results...)
	}
	return s
}

// RenderedMessage is a message classified against the current user.
type RenderedMessage struct {
	backend.Message
	IsCurrentUser bool
}

// View is what a presenter draws: the state plus derived fields.
type View struct {
	State
	Messages    []RenderedMessage
	CanNavigate bool
}
