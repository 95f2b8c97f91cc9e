package directory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	ids     []string
	listErr error
	infos   map[string]backend.Conversation
	fail    map[string]error
	delay   time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeSource) ListChatIDs(context.Context, backend.Platform) ([]string, error) {
	return f.ids, f.listErr
}

func (f *fakeSource) ChatInfo(_ context.Context, id string) (backend.Conversation, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.fail[id]; err != nil {
		return backend.Conversation{}, err
	}
	return f.infos[id], nil
}

func conv(id string, ts int64) backend.Conversation {
	c := backend.Conversation{InternalName: id, DisplayName: id}
	if ts >= 0 {
		c.LastMessage = &backend.Message{DocumentID: id + "-last", TimestampMillis: ts}
	}
	return c
}

func TestLoadSortsNewestFirstWithEmptyLast(t *testing.T) {
	src := &fakeSource{
		ids: []string{"a", "b", "c", "d", "e"},
		infos: map[string]backend.Conversation{
			"a": conv("a", 100),
			"b": conv("b", -1),
			"c": conv("c", 300),
			"d": conv("d", -1),
			"e": conv("e", 200),
		},
	}
	got, err := New(src, 0, nil).Load(context.Background(), backend.WhatsApp)
	require.NoError(t, err)

	var order []string
	for _, c := range got {
		order = append(order, c.InternalName)
	}
	assert.Equal(t, []string{"c", "e", "a", "b", "d"}, order)
}

func TestLoadDegradesSingleFailure(t *testing.T) {
	src := &fakeSource{
		ids: []string{"a", "b", "c", "d", "e"},
		infos: map[string]backend.Conversation{
			"a": conv("a", 5), "b": conv("b", 4), "d": conv("d", 2), "e": conv("e", 1),
		},
		fail: map[string]error{"c": errors.New("PII file not found")},
	}
	got, err := New(src, 0, nil).Load(context.Background(), backend.Line)
	require.NoError(t, err)
	require.Len(t, got, 5)

	var placeholders int
	for _, c := range got {
		if c.InternalName == "c" {
			placeholders++
			assert.Equal(t, "Error: PII file not found", c.DisplayName)
			assert.Nil(t, c.LastMessage)
		}
	}
	assert.Equal(t, 1, placeholders)
	assert.Equal(t, "c", got[len(got)-1].InternalName, "placeholder sorts after dated entries")
}

func TestLoadListingFailureFailsBatch(t *testing.T) {
	src := &fakeSource{listErr: errors.New("unreachable")}
	_, err := New(src, 0, nil).Load(context.Background(), backend.WeChat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wechat")
}

func TestLoadRespectsParallelLimit(t *testing.T) {
	src := &fakeSource{infos: map[string]backend.Conversation{}, delay: 5 * time.Millisecond}
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("chat-%d", i)
		src.ids = append(src.ids, id)
		src.infos[id] = conv(id, int64(i))
	}
	got, err := New(src, 3, nil).Load(context.Background(), backend.Instagram)
	require.NoError(t, err)
	assert.Len(t, got, 12)
	assert.LessOrEqual(t, src.peak.Load(), int32(3))
}

func TestSortIsNonIncreasing(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		convs := make([]backend.Conversation, 20)
		for i := range convs {
			ts := int64(r.Intn(10))
			if r.Intn(4) == 0 {
				ts = -1
			}
			convs[i] = conv(fmt.Sprintf("c%d", i), ts)
		}
		Sort(convs)

		seenEmpty := false
		var prev int64 = 1 << 62
		for _, c := range convs {
			if c.LastMessage == nil {
				seenEmpty = true
				continue
			}
			require.False(t, seenEmpty, "dated entry after an entry without last message")
			require.LessOrEqual(t, c.LastMessage.TimestampMillis, prev)
			prev = c.LastMessage.TimestampMillis
		}
	}
}

func TestSortKeepsEmptyEntriesStable(t *testing.T) {
	convs := []backend.Conversation{conv("x", -1), conv("y", 1), conv("z", -1), conv("w", -1)}
	Sort(convs)
	assert.Equal(t, "y", convs[0].InternalName)
	assert.Equal(t, "x", convs[1].InternalName)
	assert.Equal(t, "z", convs[2].InternalName)
	assert.Equal(t, "w", convs[3].InternalName)
}

func TestConversationInfoWrapsError(t *testing.T) {
	src := &fakeSource{fail: map[string]error{"a": errors.New("boom")}}
	_, err := New(src, 0, nil).ConversationInfo(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
