// Package pager manages the sliding message window of one conversation.
//
// A window is opened on an anchor document with a count; Earlier and Later
// re-anchor on the first or last message currently shown and fetch the next
// batch in that direction. A positive n asks the backend for up to n messages
// on each side of the anchor, a negative n for up to |n| before it, so every
// navigation batch is trimmed to the requested side of its anchor before it
// is shown. Offset is the cumulative signed navigation
// distance from the original anchor: Open sets it to count and every
// navigation moves it by exactly count, whatever the backend returned.
//
// Each request carries a generation token. Only the newest request may
// commit; completions of superseded requests return ErrStale and leave the
// window untouched.
package pager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/bus"
	"go.uber.org/zap"
)

var (
	// ErrNoConversation is returned when navigating before any conversation was opened.
	ErrNoConversation = errors.New("no conversation open")
	// ErrEmptyWindow is returned when navigating without a message to anchor on.
	ErrEmptyWindow = errors.New("window has no messages to anchor on")
	// ErrInvalidCount is returned for non-positive batch sizes.
	ErrInvalidCount = errors.New("count must be positive")
	// ErrStale is returned to callers whose request was superseded before it completed.
	ErrStale = errors.New("superseded by a newer request")
)

// Fetcher loads a batch of messages relative to an anchor document.
type Fetcher interface {
	Window(ctx context.Context, pii, docID string, n int) ([]backend.Message, error)
}

// Window is an immutable snapshot of the message window.
type Window struct {
	PII         string
	AnchorDocID string
	Offset      int
	Messages    []backend.Message
	Phase       Phase
	// AtStart and AtEnd are set when the backend returned fewer messages than
	// requested in that direction.
	AtStart bool
	AtEnd   bool
}

func (w Window) clone() Window {
	if w.Messages != nil {
		w.Messages = append([]backend.Message(nil), w.Messages...)
	}
	return w
}

type direction int

const (
	dirOpen direction = iota
	dirEarlier
	dirLater
)

// Controller owns the window and serializes every change to it.
type Controller struct {
	mu     sync.Mutex
	fetch  Fetcher
	bus    *bus.Bus
	logger *zap.Logger
	win    Window
	gen    uint64
}

// NewController creates a controller in the Idle phase.
func NewController(f Fetcher, b *bus.Bus, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		fetch:  f,
		bus:    b,
		logger: logger,
		win:    Window{Phase: Idle},
	}
}

// Snapshot returns a copy of the current window.
func (c *Controller) Snapshot() Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.win.clone()
}

// CanNavigate reports whether a conversation has been opened.
func (c *Controller) CanNavigate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.win.PII != ""
}

// Open resets the window onto pii anchored at anchorDocID and fetches count
// messages around the anchor. The previous window is discarded, never merged.
func (c *Controller) Open(ctx context.Context, pii, anchorDocID string, count int) (Window, error) {
	if count <= 0 {
		return c.Snapshot(), ErrInvalidCount
	}
	if pii == "" {
		return c.Snapshot(), fmt.Errorf("open: %w", ErrNoConversation)
	}

	c.mu.Lock()
	c.gen++
	token := c.gen
	from := c.win.Phase
	c.win = Window{PII: pii, AnchorDocID: anchorDocID, Offset: count, Phase: from}
	if err := c.setPhaseLocked(Loading); err != nil {
		c.mu.Unlock()
		return c.Snapshot(), err
	}
	c.mu.Unlock()

	c.logger.Debug("opening window", zap.String("pii", pii), zap.String("anchor", anchorDocID), zap.Int("count", count))
	msgs, err := c.fetch.Window(ctx, pii, anchorDocID, count)
	return c.commit(token, dirOpen, count, msgs, err)
}

// Earlier fetches the batch before the first message shown.
func (c *Controller) Earlier(ctx context.Context, count int) (Window, error) {
	return c.navigate(ctx, dirEarlier, count)
}

// Later fetches the batch after the last message shown.
func (c *Controller) Later(ctx context.Context, count int) (Window, error) {
	return c.navigate(ctx, dirLater, count)
}

// Close drops the window and any request in flight.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	pii := c.win.PII
	if c.win.Phase != Idle {
		_ = c.setPhaseLocked(Idle)
	}
	c.win = Window{Phase: Idle}
	c.logger.Debug("window closed", zap.String("pii", pii))
}

func (c *Controller) navigate(ctx context.Context, dir direction, count int) (Window, error) {
	if count <= 0 {
		return c.Snapshot(), ErrInvalidCount
	}

	c.mu.Lock()
	if c.win.PII == "" {
		c.mu.Unlock()
		return c.Snapshot(), ErrNoConversation
	}
	if len(c.win.Messages) == 0 {
		c.mu.Unlock()
		return c.Snapshot(), ErrEmptyWindow
	}

	var n int
	if dir == dirEarlier {
		c.win.AnchorDocID = c.win.Messages[0].DocumentID
		c.win.Offset -= count
		n = -count
	} else {
		c.win.AnchorDocID = c.win.Messages[len(c.win.Messages)-1].DocumentID
		c.win.Offset += count
		n = count
	}
	c.gen++
	token := c.gen
	pii, anchor := c.win.PII, c.win.AnchorDocID
	if err := c.setPhaseLocked(Loading); err != nil {
		c.mu.Unlock()
		return c.Snapshot(), err
	}
	c.mu.Unlock()

	c.logger.Debug("navigating window", zap.String("pii", pii), zap.String("anchor", anchor), zap.Int("n", n))
	msgs, err := c.fetch.Window(ctx, pii, anchor, n)
	if err == nil {
		msgs = sideOf(msgs, anchor, dir)
	}
	return c.commit(token, dir, count, msgs, err)
}

func (c *Controller) commit(token uint64, dir direction, count int, msgs []backend.Message, fetchErr error) (Window, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.gen {
		c.logger.Debug("discarding stale window response", zap.String("pii", c.win.PII), zap.Uint64("token", token), zap.Uint64("current", c.gen))
		return c.win.clone(), ErrStale
	}

	if fetchErr != nil {
		c.win.Messages = nil
		c.win.AtStart, c.win.AtEnd = false, false
		_ = c.setPhaseLocked(Idle)
		c.logger.Warn("window fetch failed", zap.String("pii", c.win.PII), zap.Error(fetchErr))
		return c.win.clone(), fmt.Errorf("fetch window for %q: %w", c.win.PII, fetchErr)
	}

	switch {
	case dir == dirOpen:
		c.win.Messages = append([]backend.Message{}, msgs...)
		c.win.AtStart, c.win.AtEnd = false, false
	case len(msgs) == 0:
		// History boundary: keep what is shown so the user can navigate back.
		if dir == dirEarlier {
			c.win.AtStart = true
		} else {
			c.win.AtEnd = true
		}
	default:
		c.win.Messages = append([]backend.Message{}, msgs...)
		c.win.AtStart = dir == dirEarlier && len(msgs) < count
		c.win.AtEnd = dir == dirLater && len(msgs) < count
	}
	if err := c.setPhaseLocked(Loaded); err != nil {
		return c.win.clone(), err
	}
	return c.win.clone(), nil
}

// sideOf keeps the messages strictly before (earlier) or after (later) the
// anchor. A batch without the anchor is already one-sided.
func sideOf(msgs []backend.Message, anchor string, dir direction) []backend.Message {
	for i, m := range msgs {
		if m.DocumentID != anchor {
			continue
		}
		if dir == dirEarlier {
			return msgs[:i]
		}
		return msgs[i+1:]
	}
	return msgs
}

func (c *Controller) setPhaseLocked(to Phase) error {
	from := c.win.Phase
	if err := checkTransition(from, to); err != nil {
		return err
	}
	c.win.Phase = to
	c.bus.Publish(bus.NewEvent(bus.KindPagerPhaseChanged, PhaseChange{PII: c.win.PII, Anchor: c.win.AnchorDocID, From: from, To: to}))
	return nil
}
