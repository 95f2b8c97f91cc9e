// Package history persists issued searches and opened conversations.
// It only records what the user asked for; results are never cached.
package history

import (
	"context"
	"fmt"

	"github.com/matheus3301/gcsearch/internal/bus"
	"github.com/matheus3301/gcsearch/internal/pager"
	"github.com/matheus3301/gcsearch/internal/search"
	"github.com/matheus3301/gcsearch/internal/store"
	"go.uber.org/zap"
)

// Store is the subset of store.DB the recorder writes to.
type Store interface {
	RecordQuery(e store.SearchEntry) (int64, error)
	RecordOpened(c store.OpenedConversation) error
}

// Recorder subscribes to "search." and "pager." events on the bus and
// writes them to the store.
type Recorder struct {
	db     Store
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRecorder creates a new history recorder.
func NewRecorder(db Store, b *bus.Bus, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		db:     db,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to search and window events on the bus.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	searches, unsubSearch := r.bus.Subscribe("search.", 64)
	windows, unsubPager := r.bus.Subscribe("pager.", 64)

	go func() {
		defer close(r.done)
		defer unsubSearch()
		defer unsubPager()
		for {
			select {
			case evt := <-searches:
				r.handleEvent(evt)
			case evt := <-windows:
				r.handleEvent(evt)
			case <-ctx.Done():
				r.drain(searches, windows)
				return
			}
		}
	}()
}

// drain records events still queued at shutdown.
func (r *Recorder) drain(chans ...<-chan bus.Event) {
	for _, ch := range chans {
		for {
			select {
			case evt := <-ch:
				r.handleEvent(evt)
				continue
			default:
			}
			break
		}
	}
}

// Stop stops the recorder and waits for the event loop to exit. Events
// published before Stop are recorded.
func (r *Recorder) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

func (r *Recorder) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindSearchCompleted:
		rec, ok := evt.Payload.(search.Record)
		if !ok {
			return
		}
		if err := r.RecordSearch(rec, evt.Timestamp.UnixMilli()); err != nil {
			r.logger.Error("failed to record search", zap.Error(err), zap.String("query", rec.Query))
		}
	case bus.KindPagerPhaseChanged:
		change, ok := evt.Payload.(pager.PhaseChange)
		if !ok || change.To != pager.Loaded || change.From != pager.Loading {
			return
		}
		if err := r.db.RecordOpened(store.OpenedConversation{
			PII:         change.PII,
			AnchorDocID: change.Anchor,
			OpenedAt:    evt.Timestamp.UnixMilli(),
		}); err != nil {
			r.logger.Error("failed to record opened conversation", zap.Error(err), zap.String("pii", change.PII))
		}
	}
}

// RecordSearch writes one completed search.
func (r *Recorder) RecordSearch(rec search.Record, at int64) error {
	id, err := r.db.RecordQuery(store.SearchEntry{
		Query:     rec.Query,
		Mode:      string(rec.Mode),
		Limit:     rec.Limit,
		Results:   rec.Results,
		CreatedAt: at,
	})
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	r.logger.Debug("search recorded", zap.Int64("id", id), zap.String("mode", string(rec.Mode)))
	return nil
}
