package backendtest

import (
	"fmt"

	"github.com/matheus3301/gcsearch/internal/backend"
)

// Thread builds a chat whose messages carry doc ids from..to, one second apart,
// alternating between the given senders.
func Thread(platform backend.Platform, name string, from, to int, senders ...string) Chat {
	if len(senders) == 0 {
		senders = []string{"alice", "bob"}
	}
	c := Chat{Name: name, DisplayName: name, Platform: platform}
	for id := from; id <= to; id++ {
		c.Messages = append(c.Messages, backend.Message{
			DocumentID:      fmt.Sprint(id),
			Text:            fmt.Sprintf("message %d", id),
			Sender:          senders[(id-from)%len(senders)],
			TimestampMillis: int64(id) * 1000,
		})
	}
	return c
}

// Say appends a message with the given text to c, after its last message.
func Say(c Chat, sender, text string) Chat {
	id, ts := 0, int64(0)
	if n := len(c.Messages); n > 0 {
		last := c.Messages[n-1]
		_, _ = fmt.Sscan(last.DocumentID, &id)
		id++
		ts = last.TimestampMillis + 1000
	}
	c.Messages = append(c.Messages, backend.Message{
		DocumentID:      fmt.Sprint(id),
		Text:            text,
		Sender:          sender,
		TimestampMillis: ts,
	})
	return c
}
