// Package directory loads and orders the conversations of one platform.
package directory

import (
	"context"
	"fmt"
	"sort"

	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source is the subset of the backend API the directory needs.
type Source interface {
	ListChatIDs(ctx context.Context, p backend.Platform) ([]string, error)
	ChatInfo(ctx context.Context, id string) (backend.Conversation, error)
}

// Directory fetches conversation listings.
type Directory struct {
	src         Source
	maxParallel int
	logger      *zap.Logger
}

// New creates a directory. maxParallel <= 0 leaves the fan-out bounded only by the transport.
func New(src Source, maxParallel int, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{src: src, maxParallel: maxParallel, logger: logger}
}

// ListConversationIDs returns every conversation identifier known for p.
func (d *Directory) ListConversationIDs(ctx context.Context, p backend.Platform) ([]string, error) {
	ids, err := d.src.ListChatIDs(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list conversations for %s: %w", p, err)
	}
	return ids, nil
}

// ConversationInfo fetches display name and last message for one conversation.
func (d *Directory) ConversationInfo(ctx context.Context, id string) (backend.Conversation, error) {
	c, err := d.src.ChatInfo(ctx, id)
	if err != nil {
		return backend.Conversation{}, fmt.Errorf("conversation info %q: %w", id, err)
	}
	return c, nil
}

// Load lists the conversations of p, fetches their details concurrently and
// returns them newest first. A failed detail fetch degrades that entry to an
// error placeholder; only a failed listing fails the load.
func (d *Directory) Load(ctx context.Context, p backend.Platform) ([]backend.Conversation, error) {
	ids, err := d.ListConversationIDs(ctx, p)
	if err != nil {
		return nil, err
	}

	convs := make([]backend.Conversation, len(ids))
	var g errgroup.Group
	if d.maxParallel > 0 {
		g.SetLimit(d.maxParallel)
	}
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			c, err := d.src.ChatInfo(ctx, id)
			if err != nil {
				d.logger.Warn("conversation info failed",
					zap.String("platform", string(p)),
					zap.String("conversation", id),
					zap.Error(err))
				convs[i] = Placeholder(id, err)
				return nil
			}
			if c.InternalName == "" {
				c.InternalName = id
			}
			convs[i] = c
			return nil
		})
	}
	_ = g.Wait()

	Sort(convs)
	d.logger.Debug("directory loaded", zap.String("platform", string(p)), zap.Int("conversations", len(convs)))
	return convs, nil
}

// Placeholder is the entry shown for a conversation whose details could not be fetched.
func Placeholder(id string, err error) backend.Conversation {
	return backend.Conversation{
		InternalName: id,
		DisplayName:  "Error: " + transport.Reason(err),
	}
}

// Sort orders conversations by last message time, newest first.
// Conversations without a last message go last and keep their relative order.
func Sort(convs []backend.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i].LastMessage, convs[j].LastMessage
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.TimestampMillis > b.TimestampMillis
		}
	})
}
