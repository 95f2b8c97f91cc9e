// Package search issues keyword and proximity queries against the backend.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/gcsearch/internal/backend"
	"go.uber.org/zap"
)

// Mode selects the search flavour.
type Mode string

const (
	Keyword   Mode = "keyword"
	Proximity Mode = "proximity"
)

// ErrEmptyQuery is returned for empty or whitespace-only queries.
var ErrEmptyQuery = errors.New("empty search query")

// ValidationError reports a request rejected before reaching the network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Source is the subset of the backend API the dispatcher needs.
type Source interface {
	TopN(ctx context.Context, query string, n int) ([]backend.SearchResult, error)
	Proximity(ctx context.Context, query string, rng int) ([]backend.SearchResult, error)
}

// Dispatcher validates and forwards search queries.
type Dispatcher struct {
	src      Source
	maxRange int
	logger   *zap.Logger
}

// New creates a dispatcher. maxRange <= 0 falls back to the default bound.
func New(src Source, maxRange int, logger *zap.Logger) *Dispatcher {
	if maxRange <= 0 {
		maxRange = backend.DefaultMaxProximityGap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{src: src, maxRange: maxRange, logger: logger}
}

// MaxRange returns the largest proximity range accepted.
func (d *Dispatcher) MaxRange() int { return d.maxRange }

// Search runs a keyword query returning at most topN results in backend order.
// It always returns a non-nil slice.
func (d *Dispatcher) Search(ctx context.Context, query string, topN int) ([]backend.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []backend.SearchResult{}, ErrEmptyQuery
	}
	if topN <= 0 {
		topN = backend.DefaultTopN
	}
	results, err := d.src.TopN(ctx, query, topN)
	if err != nil {
		d.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		return []backend.SearchResult{}, fmt.Errorf("search %q: %w", query, err)
	}
	if results == nil {
		results = []backend.SearchResult{}
	}
	if len(results) > topN {
		d.logger.Debug("backend returned more results than requested", zap.Int("top_n", topN), zap.Int("got", len(results)))
		results = results[:topN]
	}
	return results, nil
}

// Proximity runs a proximity query. rng must lie within [1, MaxRange].
func (d *Dispatcher) Proximity(ctx context.Context, query string, rng int) ([]backend.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []backend.SearchResult{}, ErrEmptyQuery
	}
	if err := d.ValidateRange(rng); err != nil {
		return []backend.SearchResult{}, err
	}
	results, err := d.src.Proximity(ctx, query, rng)
	if err != nil {
		d.logger.Warn("proximity search failed", zap.String("query", query), zap.Int("range", rng), zap.Error(err))
		return []backend.SearchResult{}, fmt.Errorf("proximity search %q: %w", query, err)
	}
	if results == nil {
		results = []backend.SearchResult{}
	}
	return results, nil
}

// ValidateRange checks a proximity range against the dispatcher bound.
func (d *Dispatcher) ValidateRange(rng int) error {
	if rng < 1 || rng > d.maxRange {
		return &ValidationError{Field: "range", Reason: fmt.Sprintf("must be between 1 and %d, got %d", d.maxRange, rng)}
	}
	return nil
}

// IsValidation reports whether err was produced by local validation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrEmptyQuery) || errors.As(err, &ve)
}

// Record is the payload of search.completed events.
type Record struct {
	Query   string
	Mode    Mode
	Limit   int
	Results int
}
