package bus

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// Bus fans client events out to subscribers by kind prefix. Publish never
// blocks; deliveries a full subscriber cannot take are counted by Dropped.
type Bus struct {
	mu      sync.RWMutex
	subs    []*subscription
	dropped atomic.Uint64
}

type subscription struct {
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Publish delivers evt to every subscriber whose prefix matches evt.Kind.
// A nil bus discards the event.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !strings.HasPrefix(evt.Kind, s.prefix) {
			continue
		}
		select {
		case s.ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe returns a channel buffering up to size events whose kind starts
// with prefix; an empty prefix matches every kind. The returned func
// unsubscribes and is safe to call more than once. The channel is never
// closed.
func (b *Bus) Subscribe(prefix string, size int) (<-chan Event, func()) {
	s := &subscription{prefix: prefix, ch: make(chan Event, max(size, 1))}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs = slices.DeleteFunc(b.subs, func(other *subscription) bool { return other == s })
		})
	}
}

// Dropped returns how many deliveries were skipped on full buffers.
func (b *Bus) Dropped() uint64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}
