// Package coordinator owns the client state and sequences every
// asynchronous operation that changes it.
//
// Each slot (directory, search, window) is guarded by a generation token
// captured when a request is issued. The network call runs without the lock
// and its result is committed only when the token is still current, so
// responses that resolve out of order never overwrite newer state.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/bus"
	"github.com/matheus3301/gcsearch/internal/pager"
	"github.com/matheus3301/gcsearch/internal/search"
	"github.com/matheus3301/gcsearch/internal/status"
	"github.com/matheus3301/gcsearch/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrStale is returned when a newer request for the same slot superseded this one.
	ErrStale = pager.ErrStale
	// ErrUnknownConversation is returned when selecting a conversation not in the directory.
	ErrUnknownConversation = errors.New("conversation not in directory")
	// ErrNoAnchor is returned when a conversation has no message to open on.
	ErrNoAnchor = errors.New("conversation has no messages")
	// ErrNoResult is returned when selecting a search result index that does not exist.
	ErrNoResult = errors.New("no such search result")
)

// Prober checks liveness and identity on the backend.
type Prober interface {
	IsAlive(ctx context.Context) error
	CurrentUser(ctx context.Context) (backend.CurrentUser, error)
}

// DirectoryLoader loads the ordered conversation list of a platform.
type DirectoryLoader interface {
	Load(ctx context.Context, p backend.Platform) ([]backend.Conversation, error)
}

// Searcher runs keyword and proximity queries.
type Searcher interface {
	Search(ctx context.Context, query string, topN int) ([]backend.SearchResult, error)
	Proximity(ctx context.Context, query string, rng int) ([]backend.SearchResult, error)
	ValidateRange(rng int) error
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Backend   Prober
	Directory DirectoryLoader
	Search    Searcher
	Pager     *pager.Controller
	Status    *status.Machine
	Bus       *bus.Bus
	Logger    *zap.Logger
}

// Options tune request sizes.
type Options struct {
	TopN       int
	WindowSize int
}

// DefaultWindowSize is the number of messages fetched on each side of an anchor.
const DefaultWindowSize = 10

// Coordinator is the single writer of State.
type Coordinator struct {
	mu    sync.Mutex
	state State

	platformGen uint64
	searchGen   uint64

	backend   Prober
	directory DirectoryLoader
	search    Searcher
	pager     *pager.Controller
	status    *status.Machine
	bus       *bus.Bus
	logger    *zap.Logger
	opts      Options
}

// New creates a coordinator with empty state.
func New(d Deps, opts Options) *Coordinator {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Status == nil {
		d.Status = status.NewMachine(d.Bus)
	}
	if d.Pager == nil {
		d.Pager = pager.NewController(nopFetcher{}, d.Bus, d.Logger)
	}
	if opts.TopN <= 0 {
		opts.TopN = backend.DefaultTopN
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	return &Coordinator{
		backend:   d.Backend,
		directory: d.Directory,
		search:    d.Search,
		pager:     d.Pager,
		status:    d.Status,
		bus:       d.Bus,
		logger:    d.Logger,
		opts:      opts,
	}
}

// Options returns the effective options.
func (c *Coordinator) Options() Options { return c.opts }

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	s := c.state.clone()
	c.mu.Unlock()
	s.Window = c.pager.Snapshot()
	s.Backend = c.status.Current()
	return s
}

// Render builds the view, classifying each message against the current
// user as of now.
func (c *Coordinator) Render() View {
	s := c.Snapshot()
	v := View{
		State:       s,
		Messages:    make([]RenderedMessage, 0, len(s.Window.Messages)),
		CanNavigate: s.Window.PII != "",
	}
	for _, m := range s.Window.Messages {
		v.Messages = append(v.Messages, RenderedMessage{
			Message:       m,
			IsCurrentUser: s.CurrentUser.Is(m.Sender),
		})
	}
	return v
}

// Start probes backend liveness once. A failed probe only marks the backend
// offline; every other operation stays available.
func (c *Coordinator) Start(ctx context.Context) error {
	_ = c.status.Transition(status.Probing)
	err := c.backend.IsAlive(ctx)
	c.status.Settle(err == nil)
	if err != nil {
		c.logger.Warn("backend liveness probe failed", zap.Error(err))
		c.setStatus("Backend unreachable: " + transport.Reason(err))
		return fmt.Errorf("probe backend: %w", err)
	}
	c.logger.Info("backend online")
	c.setStatus("")
	return nil
}

// SelectPlatform switches to p, discarding the current list, and reloads
// the directory together with the current user.
func (c *Coordinator) SelectPlatform(ctx context.Context, p backend.Platform) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", backend.ErrUnknownPlatform, p)
	}

	c.mu.Lock()
	c.platformGen++
	token := c.platformGen
	c.state.Platform = p
	c.state.Conversations = nil
	c.state.DirectoryLoading = true
	c.state.CurrentUser = backend.CurrentUser{}
	c.mu.Unlock()
	c.publish(SlotDirectory)

	c.logger.Debug("loading directory", zap.String("platform", string(p)), zap.Uint64("token", token))

	var g errgroup.Group
	g.Go(func() error {
		u, err := c.backend.CurrentUser(ctx)
		c.commitCurrentUser(token, u, err)
		return nil
	})
	var loadErr error
	g.Go(func() error {
		convs, err := c.directory.Load(ctx, p)
		loadErr = c.commitDirectory(token, p, convs, err)
		return nil
	})
	_ = g.Wait()
	return loadErr
}

func (c *Coordinator) commitDirectory(token uint64, p backend.Platform, convs []backend.Conversation, err error) error {
	c.observe(err)

	c.mu.Lock()
	if token != c.platformGen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale directory response", zap.String("platform", string(p)), zap.Uint64("token", token))
		return ErrStale
	}
	c.state.DirectoryLoading = false
	if err != nil {
		c.state.Conversations = []backend.Conversation{}
		c.state.Status = fmt.Sprintf("Could not load %s conversations: %s", p, transport.Reason(err))
	} else {
		c.state.Conversations = append([]backend.Conversation{}, convs...)
		c.state.Status = ""
	}
	c.mu.Unlock()
	c.publish(SlotDirectory)

	if err != nil {
		c.logger.Warn("directory load failed", zap.String("platform", string(p)), zap.Error(err))
		return err
	}
	c.logger.Info("directory loaded", zap.String("platform", string(p)), zap.Int("conversations", len(convs)))
	return nil
}

func (c *Coordinator) commitCurrentUser(token uint64, u backend.CurrentUser, err error) {
	c.observe(err)
	if err != nil {
		c.logger.Warn("current user lookup failed", zap.Error(err))
		return
	}

	c.mu.Lock()
	if token != c.platformGen {
		c.mu.Unlock()
		return
	}
	c.state.CurrentUser = u
	c.mu.Unlock()
	c.publish(SlotCurrentUser)
}

// Search runs a keyword query into the result slot. An empty query clears
// the results without touching the network.
func (c *Coordinator) Search(ctx context.Context, query string, topN int) error {
	if topN <= 0 {
		topN = c.opts.TopN
	}
	return c.runSearch(ctx, search.Keyword, query, topN)
}

// ProximitySearch runs a proximity query into the same result slot as Search.
func (c *Coordinator) ProximitySearch(ctx context.Context, query string, rng int) error {
	if strings.TrimSpace(query) != "" {
		if err := c.search.ValidateRange(rng); err != nil {
			c.setStatus(err.Error())
			return err
		}
	}
	return c.runSearch(ctx, search.Proximity, query, rng)
}

func (c *Coordinator) runSearch(ctx context.Context, mode search.Mode, query string, limit int) error {
	query = strings.TrimSpace(query)

	c.mu.Lock()
	c.searchGen++
	token := c.searchGen
	c.state.SearchQuery = query
	c.state.SearchMode = mode
	if query == "" {
		c.state.Results = []backend.SearchResult{}
		c.state.Searching = false
		c.state.Status = ""
		c.mu.Unlock()
		c.publish(SlotSearch)
		return nil
	}
	c.state.Searching = true
	c.mu.Unlock()
	c.publish(SlotSearch)

	var (
		results []backend.SearchResult
		err     error
	)
	if mode == search.Proximity {
		results, err = c.search.Proximity(ctx, query, limit)
	} else {
		results, err = c.search.Search(ctx, query, limit)
	}
	c.observe(err)

	c.mu.Lock()
	if token != c.searchGen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale search response", zap.String("query", query), zap.Uint64("token", token))
		return ErrStale
	}
	c.state.Searching = false
	if err != nil {
		c.state.Results = []backend.SearchResult{}
		c.state.Status = "Search failed: " + transport.Reason(err)
	} else {
		c.state.Results = append([]backend.SearchResult{}, results...)
		c.state.Status = ""
	}
	c.mu.Unlock()
	c.publish(SlotSearch)

	if err != nil {
		return err
	}
	c.bus.Publish(bus.NewEvent(bus.KindSearchCompleted, search.Record{
		Query:   query,
		Mode:    mode,
		Limit:   limit,
		Results: len(results),
	}))
	return nil
}

// ClearSearch empties the result slot and drops any search in flight.
func (c *Coordinator) ClearSearch() {
	c.mu.Lock()
	c.searchGen++
	c.state.SearchQuery = ""
	c.state.Results = []backend.SearchResult{}
	c.state.Searching = false
	c.mu.Unlock()
	c.publish(SlotSearch)
}

// OpenConversation resets the message window onto pii at anchorDocID.
// count <= 0 uses the configured window size.
func (c *Coordinator) OpenConversation(ctx context.Context, pii, anchorDocID string, count int) error {
	if count <= 0 {
		count = c.opts.WindowSize
	}
	_, err := c.pager.Open(ctx, pii, anchorDocID, count)
	return c.afterWindow(err)
}

// SelectConversation opens a directory entry on its last message.
func (c *Coordinator) SelectConversation(ctx context.Context, internalName string) error {
	c.mu.Lock()
	var found *backend.Conversation
	for i := range c.state.Conversations {
		if c.state.Conversations[i].InternalName == internalName {
			conv := c.state.Conversations[i]
			found = &conv
			break
		}
	}
	c.mu.Unlock()

	if found == nil {
		return fmt.Errorf("%w: %q", ErrUnknownConversation, internalName)
	}
	if found.LastMessage == nil {
		return fmt.Errorf("%w: %q", ErrNoAnchor, internalName)
	}
	return c.OpenConversation(ctx, found.InternalName, found.LastMessage.DocumentID, 0)
}

// SelectResult opens the conversation of the i-th search result on the
// matched message.
func (c *Coordinator) SelectResult(ctx context.Context, i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.state.Results) {
		n := len(c.state.Results)
		c.mu.Unlock()
		return fmt.Errorf("%w: index %d of %d", ErrNoResult, i, n)
	}
	r := c.state.Results[i]
	c.mu.Unlock()
	return c.OpenConversation(ctx, r.ConversationName, r.MessageDetails.DocumentID, 0)
}

// CanNavigate reports whether Earlier and Later are available.
func (c *Coordinator) CanNavigate() bool {
	return c.pager.CanNavigate()
}

// Earlier moves the window one configured batch back in history.
func (c *Coordinator) Earlier(ctx context.Context) error {
	return c.EarlierBy(ctx, c.opts.WindowSize)
}

// Later moves the window one configured batch forward in history.
func (c *Coordinator) Later(ctx context.Context) error {
	return c.LaterBy(ctx, c.opts.WindowSize)
}

// EarlierBy moves the window count messages back in history.
func (c *Coordinator) EarlierBy(ctx context.Context, count int) error {
	_, err := c.pager.Earlier(ctx, count)
	return c.afterWindow(err)
}

// LaterBy moves the window count messages forward in history.
func (c *Coordinator) LaterBy(ctx context.Context, count int) error {
	_, err := c.pager.Later(ctx, count)
	return c.afterWindow(err)
}

// CloseConversation drops the window.
func (c *Coordinator) CloseConversation() {
	c.pager.Close()
	c.publish(SlotWindow)
}

func (c *Coordinator) afterWindow(err error) error {
	switch {
	case err == nil:
		c.observe(nil)
		c.setStatus("")
	case errors.Is(err, ErrStale):
		return err
	case errors.Is(err, pager.ErrNoConversation), errors.Is(err, pager.ErrEmptyWindow), errors.Is(err, pager.ErrInvalidCount):
		c.setStatus(err.Error())
	default:
		c.observe(err)
		c.setStatus("Could not load messages: " + transport.Reason(err))
	}
	c.publish(SlotWindow)
	return err
}

// observe feeds the outcome of a network call into the liveness machine.
// Server-reported errors prove the backend is reachable.
func (c *Coordinator) observe(err error) {
	if err == nil {
		c.status.Settle(true)
		return
	}
	var te *transport.Error
	if errors.As(err, &te) {
		c.status.Settle(te.Kind == transport.KindServer)
	}
}

func (c *Coordinator) setStatus(msg string) {
	c.mu.Lock()
	changed := c.state.Status != msg
	c.state.Status = msg
	c.mu.Unlock()
	if changed {
		c.publish(SlotStatus)
	}
}

func (c *Coordinator) publish(slot Slot) {
	c.bus.Publish(bus.NewEvent(bus.KindStateChanged, Change{Slot: slot}))
}

type nopFetcher struct{}

func (nopFetcher) Window(context.Context, string, string, int) ([]backend.Message, error) {
	return nil, errors.New("no message source configured")
}
