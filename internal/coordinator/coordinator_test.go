package coordinator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/bus"
	"github.com/matheus3301/gcsearch/internal/pager"
	"github.com/matheus3301/gcsearch/internal/search"
	"github.com/matheus3301/gcsearch/internal/status"
	"github.com/matheus3301/gcsearch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	aliveErr error
	user     *string
}

func (f *fakeBackend) IsAlive(context.Context) error { return f.aliveErr }

func (f *fakeBackend) CurrentUser(context.Context) (backend.CurrentUser, error) {
	return backend.CurrentUser{Identity: f.user}, nil
}

type staticDirectory map[backend.Platform][]backend.Conversation

func (d staticDirectory) Load(_ context.Context, p backend.Platform) ([]backend.Conversation, error) {
	convs, ok := d[p]
	if !ok {
		return nil, &transport.Error{Endpoint: backend.EndpointListChats, Kind: transport.KindServer, Cause: errors.New("unknown platform")}
	}
	return convs, nil
}

type loadResult struct {
	convs []backend.Conversation
	err   error
}

type loadCall struct {
	platform backend.Platform
	reply    chan loadResult
}

// gatedDirectory blocks each load until the test replies.
type gatedDirectory struct {
	calls chan *loadCall
}

func (g *gatedDirectory) Load(_ context.Context, p backend.Platform) ([]backend.Conversation, error) {
	call := &loadCall{platform: p, reply: make(chan loadResult, 1)}
	g.calls <- call
	r := <-call.reply
	return r.convs, r.err
}

func nextLoad(t *testing.T, g *gatedDirectory) *loadCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for directory load")
		return nil
	}
}

type countingSource struct {
	calls   int
	results []backend.SearchResult
	err     error
}

func (s *countingSource) TopN(context.Context, string, int) ([]backend.SearchResult, error) {
	s.calls++
	return s.results, s.err
}

func (s *countingSource) Proximity(context.Context, string, int) ([]backend.SearchResult, error) {
	s.calls++
	return s.results, s.err
}

type windowRequest struct {
	pii, docID string
	n          int
}

type windowRecorder struct {
	reqs []windowRequest
	msgs []backend.Message
}

func (w *windowRecorder) Window(_ context.Context, pii, docID string, n int) ([]backend.Message, error) {
	w.reqs = append(w.reqs, windowRequest{pii, docID, n})
	return w.msgs, nil
}

func conv(name string, ts int64) backend.Conversation {
	return backend.Conversation{
		InternalName: name,
		DisplayName:  name,
		LastMessage:  &backend.Message{DocumentID: fmt.Sprint(ts), TimestampMillis: ts},
	}
}

func strPtr(s string) *string { return &s }

func newTestCoordinator(t *testing.T, d Deps) *Coordinator {
	t.Helper()
	if d.Backend == nil {
		d.Backend = &fakeBackend{}
	}
	if d.Search == nil {
		d.Search = search.New(&countingSource{}, 0, nil)
	}
	return New(d, Options{TopN: 25, WindowSize: 4})
}

func TestStalePlatformResponseIsDropped(t *testing.T) {
	dir := &gatedDirectory{calls: make(chan *loadCall)}
	c := newTestCoordinator(t, Deps{Directory: dir})
	ctx := context.Background()

	instaDone := make(chan error, 1)
	go func() { instaDone <- c.SelectPlatform(ctx, backend.Instagram) }()
	insta := nextLoad(t, dir)
	require.Equal(t, backend.Instagram, insta.platform)

	waDone := make(chan error, 1)
	go func() { waDone <- c.SelectPlatform(ctx, backend.WhatsApp) }()
	wa := nextLoad(t, dir)
	require.Equal(t, backend.WhatsApp, wa.platform)

	waConvs := []backend.Conversation{conv("family", 300), conv("work", 200)}
	wa.reply <- loadResult{convs: waConvs}
	require.NoError(t, <-waDone)

	insta.reply <- loadResult{convs: []backend.Conversation{conv("dm_alex", 999)}}
	assert.ErrorIs(t, <-instaDone, ErrStale)

	s := c.Snapshot()
	assert.Equal(t, backend.WhatsApp, s.Platform)
	assert.Equal(t, waConvs, s.Conversations)
	assert.False(t, s.DirectoryLoading)
}

func TestSelectPlatformDiscardsPreviousList(t *testing.T) {
	dir := &gatedDirectory{calls: make(chan *loadCall)}
	c := newTestCoordinator(t, Deps{Directory: dir})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.SelectPlatform(ctx, backend.Line) }()
	nextLoad(t, dir).reply <- loadResult{convs: []backend.Conversation{conv("a", 1)}}
	require.NoError(t, <-done)
	require.Len(t, c.Snapshot().Conversations, 1)

	go func() { done <- c.SelectPlatform(ctx, backend.WeChat) }()
	pending := nextLoad(t, dir)
	s := c.Snapshot()
	assert.Empty(t, s.Conversations)
	assert.True(t, s.DirectoryLoading)
	assert.Equal(t, backend.WeChat, s.Platform)

	pending.reply <- loadResult{err: errors.New("boom")}
	require.Error(t, <-done)
	s = c.Snapshot()
	assert.Empty(t, s.Conversations)
	assert.False(t, s.DirectoryLoading)
	assert.Contains(t, s.Status, "boom")
}

func TestSelectPlatformRejectsUnknown(t *testing.T) {
	c := newTestCoordinator(t, Deps{Directory: staticDirectory{}})
	err := c.SelectPlatform(context.Background(), backend.Platform("myspace"))
	assert.ErrorIs(t, err, backend.ErrUnknownPlatform)
	assert.Empty(t, c.Snapshot().Platform)
}

func TestEmptyQueryClearsWithoutNetwork(t *testing.T) {
	src := &countingSource{results: []backend.SearchResult{{ConversationName: "trip"}}}
	c := newTestCoordinator(t, Deps{Search: search.New(src, 0, nil)})
	ctx := context.Background()

	require.NoError(t, c.Search(ctx, "castle", 25))
	require.Len(t, c.Snapshot().Results, 1)
	require.Equal(t, 1, src.calls)

	for _, q := range []string{"", "  ", "\t"} {
		require.NoError(t, c.Search(ctx, q, 25))
		s := c.Snapshot()
		assert.NotNil(t, s.Results)
		assert.Empty(t, s.Results)
		assert.False(t, s.Searching)
	}
	require.NoError(t, c.ProximitySearch(ctx, " ", 0))
	assert.Equal(t, 1, src.calls, "empty queries must not reach the network")
}

func TestSearchKeepsBackendOrder(t *testing.T) {
	src := &countingSource{results: []backend.SearchResult{
		{ConversationName: "uni", Platform: backend.WhatsApp, MessageDetails: backend.Message{DocumentID: "1", TimestampMillis: 10}},
		{ConversationName: "trip", Platform: backend.Instagram, MessageDetails: backend.Message{DocumentID: "2", TimestampMillis: 900}},
	}}
	c := newTestCoordinator(t, Deps{Search: search.New(src, 0, nil)})

	require.NoError(t, c.Search(context.Background(), "edinburgh", 25))
	v := c.Render()
	require.Len(t, v.Results, 2)
	assert.Equal(t, src.results, v.Results)
	assert.Equal(t, "edinburgh", v.SearchQuery)
	assert.Equal(t, search.Keyword, v.SearchMode)
}

func TestSearchFailureClearsResults(t *testing.T) {
	src := &countingSource{results: []backend.SearchResult{{ConversationName: "x"}}}
	c := newTestCoordinator(t, Deps{Search: search.New(src, 0, nil)})
	ctx := context.Background()
	require.NoError(t, c.Search(ctx, "x", 5))

	src.err = &transport.Error{Endpoint: backend.EndpointTopN, Kind: transport.KindTransport, Cause: errors.New("connection refused")}
	require.Error(t, c.Search(ctx, "y", 5))

	s := c.Snapshot()
	assert.Empty(t, s.Results)
	assert.False(t, s.Searching)
	assert.Equal(t, "Search failed: connection refused", s.Status)
	assert.Equal(t, status.Offline, s.Backend)
}

type gatedSource struct {
	calls chan chan []backend.SearchResult
}

func (g *gatedSource) TopN(context.Context, string, int) ([]backend.SearchResult, error) {
	reply := make(chan []backend.SearchResult, 1)
	g.calls <- reply
	return <-reply, nil
}

func (g *gatedSource) Proximity(ctx context.Context, q string, n int) ([]backend.SearchResult, error) {
	return g.TopN(ctx, q, n)
}

func TestStaleSearchIsDropped(t *testing.T) {
	src := &gatedSource{calls: make(chan chan []backend.SearchResult)}
	c := newTestCoordinator(t, Deps{Search: search.New(src, 0, nil)})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- c.Search(ctx, "old", 25) }()
	firstReply := <-src.calls

	second := make(chan error, 1)
	go func() { second <- c.ProximitySearch(ctx, "new", 3) }()
	secondReply := <-src.calls

	newest := []backend.SearchResult{{ConversationName: "new"}}
	secondReply <- newest
	require.NoError(t, <-second)
	firstReply <- []backend.SearchResult{{ConversationName: "old"}}
	assert.ErrorIs(t, <-first, ErrStale)

	s := c.Snapshot()
	assert.Equal(t, newest, s.Results)
	assert.Equal(t, search.Proximity, s.SearchMode)
	assert.Equal(t, "new", s.SearchQuery)
}

func TestProximityRangeRejectedLocally(t *testing.T) {
	src := &countingSource{}
	c := newTestCoordinator(t, Deps{Search: search.New(src, 25, nil)})

	err := c.ProximitySearch(context.Background(), "rent due", 26)
	require.Error(t, err)
	assert.True(t, search.IsValidation(err))
	assert.Zero(t, src.calls)
	assert.Contains(t, c.Snapshot().Status, "range")
}

func TestSearchCompletedPublished(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("search.", 4)
	defer unsub()

	src := &countingSource{results: []backend.SearchResult{{}, {}, {}}}
	c := newTestCoordinator(t, Deps{Search: search.New(src, 0, nil), Bus: b})
	require.NoError(t, c.ProximitySearch(context.Background(), " see you ", 4))

	select {
	case evt := <-ch:
		assert.Equal(t, bus.KindSearchCompleted, evt.Kind)
		assert.Equal(t, search.Record{Query: "see you", Mode: search.Proximity, Limit: 4, Results: 3}, evt.Payload)
	case <-time.After(time.Second):
		t.Fatal("no search.completed event")
	}
}

func TestOfflineProbeDoesNotBlock(t *testing.T) {
	be := &fakeBackend{aliveErr: &transport.Error{Endpoint: backend.EndpointIsAlive, Kind: transport.KindTransport, Cause: errors.New("connection refused")}}
	src := &countingSource{results: []backend.SearchResult{{ConversationName: "trip"}}}
	c := newTestCoordinator(t, Deps{Backend: be, Search: search.New(src, 0, nil)})
	ctx := context.Background()

	require.Error(t, c.Start(ctx))
	s := c.Snapshot()
	assert.Equal(t, status.Offline, s.Backend)
	assert.Equal(t, "Backend unreachable: connection refused", s.Status)

	require.NoError(t, c.Search(ctx, "trip", 5))
	s = c.Snapshot()
	assert.Len(t, s.Results, 1)
	assert.Equal(t, status.Online, s.Backend, "a successful call brings the backend back online")
	assert.Empty(t, s.Status)
}

func TestStartOnline(t *testing.T) {
	c := newTestCoordinator(t, Deps{})
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, status.Online, c.Snapshot().Backend)
}

func TestSelectionsRouteThroughOpenConversation(t *testing.T) {
	win := &windowRecorder{msgs: []backend.Message{{DocumentID: "7"}, {DocumentID: "8"}}}
	src := &countingSource{results: []backend.SearchResult{
		{ConversationName: "whatsapp__trip", MessageDetails: backend.Message{DocumentID: "42"}},
	}}
	c := newTestCoordinator(t, Deps{
		Directory: staticDirectory{backend.WhatsApp: {conv("whatsapp__uni", 8), {InternalName: "empty", DisplayName: "empty"}}},
		Search:    search.New(src, 0, nil),
		Pager:     pager.NewController(win, nil, nil),
	})
	ctx := context.Background()

	require.NoError(t, c.SelectPlatform(ctx, backend.WhatsApp))
	require.NoError(t, c.SelectConversation(ctx, "whatsapp__uni"))
	require.NoError(t, c.Later(ctx))
	assert.Equal(t, 8, c.Snapshot().Window.Offset)

	require.NoError(t, c.Search(ctx, "trip", 25))
	require.NoError(t, c.SelectResult(ctx, 0))

	assert.Equal(t, []windowRequest{
		{"whatsapp__uni", "8", 4},
		{"whatsapp__uni", "8", 4},
		{"whatsapp__trip", "42", 4},
	}, win.reqs)
	w := c.Snapshot().Window
	assert.Equal(t, "whatsapp__trip", w.PII)
	assert.Equal(t, "42", w.AnchorDocID)
	assert.Equal(t, 4, w.Offset, "a new selection resets the window")

	assert.ErrorIs(t, c.SelectConversation(ctx, "empty"), ErrNoAnchor)
	assert.ErrorIs(t, c.SelectConversation(ctx, "nope"), ErrUnknownConversation)
	assert.ErrorIs(t, c.SelectResult(ctx, 3), ErrNoResult)
	assert.Len(t, win.reqs, 3)
}

func TestNavigateByExplicitCount(t *testing.T) {
	win := &windowRecorder{msgs: []backend.Message{{DocumentID: "5"}, {DocumentID: "6"}, {DocumentID: "7"}}}
	c := newTestCoordinator(t, Deps{Pager: pager.NewController(win, nil, nil)})
	ctx := context.Background()

	require.NoError(t, c.OpenConversation(ctx, "line__family", "6", 2))
	require.NoError(t, c.EarlierBy(ctx, 2))
	require.NoError(t, c.LaterBy(ctx, 5))

	assert.Equal(t, []windowRequest{
		{"line__family", "6", 2},
		{"line__family", "5", -2},
		{"line__family", "7", 5},
	}, win.reqs)
	assert.Equal(t, 2-2+5, c.Snapshot().Window.Offset, "the configured window size plays no part")
}

func TestNavigationGuard(t *testing.T) {
	c := newTestCoordinator(t, Deps{})
	assert.False(t, c.CanNavigate())
	assert.ErrorIs(t, c.Earlier(context.Background()), pager.ErrNoConversation)
	assert.ErrorIs(t, c.Later(context.Background()), pager.ErrNoConversation)
	assert.False(t, c.Render().CanNavigate)
}

func TestRenderClassifiesAtRenderTime(t *testing.T) {
	be := &fakeBackend{user: strPtr("me")}
	win := &windowRecorder{msgs: []backend.Message{
		{DocumentID: "1", Sender: "me", Text: "hi"},
		{DocumentID: "2", Sender: "bob", Text: "hey"},
	}}
	c := newTestCoordinator(t, Deps{
		Backend:   be,
		Directory: staticDirectory{backend.Line: {conv("chat", 2)}},
		Pager:     pager.NewController(win, nil, nil),
	})
	ctx := context.Background()

	require.NoError(t, c.SelectPlatform(ctx, backend.Line))
	require.NoError(t, c.OpenConversation(ctx, "chat", "2", 0))

	v := c.Render()
	require.Len(t, v.Messages, 2)
	assert.True(t, v.Messages[0].IsCurrentUser)
	assert.False(t, v.Messages[1].IsCurrentUser)
	assert.True(t, v.CanNavigate)

	be.user = strPtr("bob")
	require.NoError(t, c.SelectPlatform(ctx, backend.Line))
	v = c.Render()
	assert.False(t, v.Messages[0].IsCurrentUser)
	assert.True(t, v.Messages[1].IsCurrentUser)

	be.user = nil
	require.NoError(t, c.SelectPlatform(ctx, backend.Line))
	for _, m := range c.Render().Messages {
		assert.False(t, m.IsCurrentUser)
	}
}

func TestWindowFailureSurfacesStatus(t *testing.T) {
	fail := pagerFetch(func() ([]backend.Message, error) {
		return nil, &transport.Error{Endpoint: backend.EndpointWindow, Kind: transport.KindServer, Cause: errors.New("no such chat")}
	})
	c := newTestCoordinator(t, Deps{Pager: pager.NewController(fail, nil, nil)})

	require.Error(t, c.OpenConversation(context.Background(), "ghost", "1", 3))
	s := c.Snapshot()
	assert.Equal(t, "Could not load messages: no such chat", s.Status)
	assert.Equal(t, pager.Idle, s.Window.Phase)
	assert.Equal(t, "ghost", s.Window.PII)
	assert.Equal(t, status.Online, s.Backend, "a server-reported error proves the backend is up")
}

func TestStateChangedPublished(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("state.", 16)
	defer unsub()

	c := newTestCoordinator(t, Deps{Bus: b, Directory: staticDirectory{backend.WeChat: nil}})
	require.NoError(t, c.SelectPlatform(context.Background(), backend.WeChat))

	var slots []Slot
	for len(ch) > 0 {
		evt := <-ch
		change, ok := evt.Payload.(Change)
		require.True(t, ok)
		slots = append(slots, change.Slot)
	}
	assert.Contains(t, slots, SlotDirectory)
	assert.Contains(t, slots, SlotCurrentUser)
}

type pagerFetch func() ([]backend.Message, error)

func (f pagerFetch) Window(context.Context, string, string, int) ([]backend.Message, error) {
	return f()
}
