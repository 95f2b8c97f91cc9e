package pager

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchFunc func(pii, docID string, n int) ([]backend.Message, error)

func (f fetchFunc) Window(_ context.Context, pii, docID string, n int) ([]backend.Message, error) {
	return f(pii, docID, n)
}

func msgs(ids ...int) []backend.Message {
	out := make([]backend.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, backend.Message{DocumentID: fmt.Sprint(id), TimestampMillis: int64(id) * 1000})
	}
	return out
}

func seq(from, to int) []backend.Message {
	var ids []int
	for i := from; i <= to; i++ {
		ids = append(ids, i)
	}
	return msgs(ids...)
}

type request struct {
	pii, docID string
	n          int
}

// recorder answers with a fixed-size batch on the requested side and logs requests.
type recorder struct {
	reqs  []request
	batch int
}

func (r *recorder) Window(_ context.Context, pii, docID string, n int) ([]backend.Message, error) {
	r.reqs = append(r.reqs, request{pii, docID, n})
	var anchor int
	_, _ = fmt.Sscan(docID, &anchor)
	switch {
	case len(r.reqs) == 1:
		return seq(anchor-r.batch, anchor+r.batch), nil
	case n < 0:
		return seq(anchor-r.batch, anchor-1), nil
	default:
		return seq(anchor+1, anchor+r.batch), nil
	}
}

func TestOpenLoadsWindow(t *testing.T) {
	rec := &recorder{batch: 2}
	c := NewController(rec, nil, nil)
	assert.Equal(t, Idle, c.Snapshot().Phase)
	assert.False(t, c.CanNavigate())

	w, err := c.Open(context.Background(), "whatsapp__trip", "50", 2)
	require.NoError(t, err)
	assert.Equal(t, Loaded, w.Phase)
	assert.Equal(t, "whatsapp__trip", w.PII)
	assert.Equal(t, "50", w.AnchorDocID)
	assert.Equal(t, 2, w.Offset)
	assert.Len(t, w.Messages, 5)
	assert.True(t, c.CanNavigate())
	assert.Equal(t, []request{{"whatsapp__trip", "50", 2}}, rec.reqs)
}

func TestEarlierLaterReanchorAndOffset(t *testing.T) {
	rec := &recorder{batch: 3}
	c := NewController(rec, nil, nil)
	ctx := context.Background()

	_, err := c.Open(ctx, "p", "50", 3)
	require.NoError(t, err)

	w, err := c.Earlier(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Offset)
	assert.Equal(t, "47", w.AnchorDocID, "earlier re-anchors on the first message")
	assert.Equal(t, request{"p", "47", -3}, rec.reqs[1])
	assert.Equal(t, "44", w.Messages[0].DocumentID)
	assert.Equal(t, "46", w.Messages[len(w.Messages)-1].DocumentID)

	w, err = c.Later(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Offset, "earlier then later with equal count restores the offset")
	assert.Equal(t, "46", w.AnchorDocID, "later re-anchors on the last message")
	assert.Equal(t, request{"p", "46", 3}, rec.reqs[2])
}

func TestOffsetRoundTripIndependentOfBatchSize(t *testing.T) {
	sizes := []int{0, 1, 7, 40}
	for _, size := range sizes {
		t.Run(fmt.Sprintf("batch=%d", size), func(t *testing.T) {
			first := true
			f := fetchFunc(func(_, _ string, n int) ([]backend.Message, error) {
				if first {
					first = false
					return seq(10, 20), nil
				}
				if n < 0 {
					return seq(10-size, 9)[:size], nil
				}
				return seq(21, 20+size)[:size], nil
			})
			c := NewController(f, nil, nil)
			ctx := context.Background()

			w, err := c.Open(ctx, "p", "15", 10)
			require.NoError(t, err)
			start := w.Offset

			_, err = c.Earlier(ctx, 10)
			require.NoError(t, err)
			w, err = c.Later(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, start, w.Offset)
		})
	}
}

func TestNavigationRequiresConversation(t *testing.T) {
	calls := 0
	c := NewController(fetchFunc(func(string, string, int) ([]backend.Message, error) {
		calls++
		return nil, nil
	}), nil, nil)

	_, err := c.Earlier(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNoConversation)
	_, err = c.Later(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNoConversation)
	assert.Zero(t, calls)
}

func TestInvalidCount(t *testing.T) {
	c := NewController(fetchFunc(func(string, string, int) ([]backend.Message, error) {
		t.Fatal("fetch must not be called")
		return nil, nil
	}), nil, nil)
	_, err := c.Open(context.Background(), "p", "1", 0)
	assert.ErrorIs(t, err, ErrInvalidCount)
	_, err = c.Earlier(context.Background(), -1)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestOpenResetsWindow(t *testing.T) {
	batches := [][]backend.Message{seq(1, 5), seq(100, 102)}
	i := 0
	c := NewController(fetchFunc(func(string, string, int) ([]backend.Message, error) {
		b := batches[i]
		i++
		return b, nil
	}), nil, nil)

	_, err := c.Open(context.Background(), "a", "3", 2)
	require.NoError(t, err)
	w, err := c.Open(context.Background(), "b", "101", 1)
	require.NoError(t, err)
	assert.Equal(t, "b", w.PII)
	assert.Equal(t, 1, w.Offset)
	assert.Equal(t, seq(100, 102), w.Messages)
}

func TestFetchFailureRevertsToIdleKeepingConversation(t *testing.T) {
	fail := false
	c := NewController(fetchFunc(func(string, string, int) ([]backend.Message, error) {
		if fail {
			return nil, errors.New("backend down")
		}
		return seq(1, 3), nil
	}), nil, nil)

	_, err := c.Open(context.Background(), "p", "2", 1)
	require.NoError(t, err)

	fail = true
	w, err := c.Later(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStale)
	assert.Equal(t, Idle, w.Phase)
	assert.Equal(t, "p", w.PII)
	assert.Empty(t, w.Messages)
	assert.True(t, c.CanNavigate())

	_, err = c.Later(context.Background(), 1)
	assert.ErrorIs(t, err, ErrEmptyWindow)
}

func TestBoundaryKeepsMessages(t *testing.T) {
	first := true
	c := NewController(fetchFunc(func(string, string, int) ([]backend.Message, error) {
		if first {
			first = false
			return seq(0, 2), nil
		}
		return nil, nil
	}), nil, nil)

	_, err := c.Open(context.Background(), "p", "0", 2)
	require.NoError(t, err)
	w, err := c.Earlier(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, w.AtStart)
	assert.False(t, w.AtEnd)
	assert.Equal(t, seq(0, 2), w.Messages)
	assert.Equal(t, 0, w.Offset)
	assert.Equal(t, Loaded, w.Phase)
}

func TestShortBatchMarksEnd(t *testing.T) {
	first := true
	c := NewController(fetchFunc(func(string, string, int) ([]backend.Message, error) {
		if first {
			first = false
			return seq(5, 9), nil
		}
		return seq(10, 11), nil
	}), nil, nil)

	_, err := c.Open(context.Background(), "p", "7", 2)
	require.NoError(t, err)
	w, err := c.Later(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, w.AtEnd)
	assert.Equal(t, seq(10, 11), w.Messages)
}

func TestNavigationTrimsAroundBatches(t *testing.T) {
	// The backend answers every positive n with messages on both sides of the anchor.
	around := fetchFunc(func(_, docID string, n int) ([]backend.Message, error) {
		var anchor int
		_, _ = fmt.Sscan(docID, &anchor)
		if n < 0 {
			return seq(anchor+n, anchor), nil
		}
		return seq(anchor-n, anchor+n), nil
	})
	c := NewController(around, nil, nil)
	ctx := context.Background()

	w, err := c.Open(ctx, "p", "50", 2)
	require.NoError(t, err)
	assert.Equal(t, seq(48, 52), w.Messages)

	w, err = c.Later(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, seq(53, 54), w.Messages, "later keeps only messages after the anchor")
	assert.False(t, w.AtEnd)

	w, err = c.Earlier(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, seq(51, 52), w.Messages, "earlier keeps only messages before the anchor")
	assert.Equal(t, 2, w.Offset)
}

func TestSideOf(t *testing.T) {
	batch := seq(1, 5)
	assert.Equal(t, seq(1, 2), sideOf(batch, "3", dirEarlier))
	assert.Equal(t, seq(4, 5), sideOf(batch, "3", dirLater))
	assert.Equal(t, batch, sideOf(batch, "9", dirLater))
	assert.Empty(t, sideOf(batch, "5", dirLater))
}

type pending struct {
	docID string
	n     int
	reply chan []backend.Message
}

// gated blocks every fetch until the test replies, so completions can be reordered.
type gated struct {
	calls chan *pending
}

func (g *gated) Window(_ context.Context, _, docID string, n int) ([]backend.Message, error) {
	p := &pending{docID: docID, n: n, reply: make(chan []backend.Message, 1)}
	g.calls <- p
	return <-p.reply, nil
}

func next(t *testing.T, g *gated) *pending {
	t.Helper()
	select {
	case p := <-g.calls:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for fetch")
		return nil
	}
}

type outcome struct {
	w   Window
	err error
}

func TestStaleNavigationIsDiscarded(t *testing.T) {
	g := &gated{calls: make(chan *pending)}
	c := NewController(g, nil, nil)
	ctx := context.Background()

	opened := make(chan outcome, 1)
	go func() {
		w, err := c.Open(ctx, "p", "50", 5)
		opened <- outcome{w, err}
	}()
	next(t, g).reply <- seq(45, 55)
	require.NoError(t, (<-opened).err)

	earlier := make(chan outcome, 1)
	go func() {
		w, err := c.Earlier(ctx, 5)
		earlier <- outcome{w, err}
	}()
	pe := next(t, g)
	assert.Equal(t, -5, pe.n)

	later := make(chan outcome, 1)
	go func() {
		w, err := c.Later(ctx, 5)
		later <- outcome{w, err}
	}()
	pl := next(t, g)
	assert.Equal(t, "55", pl.docID, "later anchors on the still-visible window")

	// Newest request resolves first, the superseded one afterwards.
	pl.reply <- seq(56, 60)
	lo := <-later
	require.NoError(t, lo.err)
	pe.reply <- seq(40, 44)
	eo := <-earlier
	assert.ErrorIs(t, eo.err, ErrStale)

	w := c.Snapshot()
	assert.Equal(t, seq(56, 60), w.Messages)
	assert.Equal(t, 5, w.Offset)
	assert.Equal(t, Loaded, w.Phase)
}

func TestReopenDiscardsInFlightNavigation(t *testing.T) {
	g := &gated{calls: make(chan *pending)}
	c := NewController(g, nil, nil)
	ctx := context.Background()

	done := make(chan outcome, 1)
	go func() {
		w, err := c.Open(ctx, "a", "10", 2)
		done <- outcome{w, err}
	}()
	next(t, g).reply <- seq(8, 12)
	<-done

	nav := make(chan outcome, 1)
	go func() {
		w, err := c.Later(ctx, 2)
		nav <- outcome{w, err}
	}()
	pn := next(t, g)

	go func() {
		w, err := c.Open(ctx, "b", "300", 1)
		done <- outcome{w, err}
	}()
	next(t, g).reply <- seq(299, 301)
	require.NoError(t, (<-done).err)

	pn.reply <- seq(13, 14)
	assert.ErrorIs(t, (<-nav).err, ErrStale)
	w := c.Snapshot()
	assert.Equal(t, "b", w.PII)
	assert.Equal(t, seq(299, 301), w.Messages)
}

func TestPhaseEventsPublished(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("pager.", 10)
	defer unsub()

	c := NewController(fetchFunc(func(string, string, int) ([]backend.Message, error) {
		return seq(1, 1), nil
	}), b, nil)
	_, err := c.Open(context.Background(), "p", "1", 1)
	require.NoError(t, err)

	var got []PhaseChange
	for n := 0; n < 2; n++ {
		evt := <-ch
		change, ok := evt.Payload.(PhaseChange)
		require.True(t, ok)
		got = append(got, change)
	}
	assert.Equal(t, []PhaseChange{{PII: "p", Anchor: "1", From: Idle, To: Loading}, {PII: "p", Anchor: "1", From: Loading, To: Loaded}}, got)
}

func TestCloseReturnsToIdle(t *testing.T) {
	c := NewController(fetchFunc(func(string, string, int) ([]backend.Message, error) {
		return seq(1, 2), nil
	}), nil, nil)
	_, err := c.Open(context.Background(), "p", "1", 1)
	require.NoError(t, err)

	c.Close()
	w := c.Snapshot()
	assert.Equal(t, Idle, w.Phase)
	assert.Empty(t, w.PII)
	assert.False(t, c.CanNavigate())
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(Idle, Loading))
	assert.True(t, CanTransition(Loading, Loading))
	assert.True(t, CanTransition(Loading, Loaded))
	assert.True(t, CanTransition(Loading, Idle))
	assert.True(t, CanTransition(Loaded, Loading))
	assert.False(t, CanTransition(Idle, Loaded))
	assert.False(t, CanTransition(Loaded, Loaded))
}
