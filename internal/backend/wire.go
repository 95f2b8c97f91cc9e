package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The backend is loose about field names and number encodings; these DTOs
// accept every variant it emits and normalize them into the domain types.

type wireMessage struct {
	DocID           flexString `json:"doc_id"`
	DocumentID      flexString `json:"documentId"`
	Message         *string    `json:"message"`
	Text            *string    `json:"text"`
	Sender          string     `json:"sender"`
	Time            *flexInt   `json:"time"`
	Timestamp       *flexInt   `json:"timestamp"`
	TimestampMillis *flexInt   `json:"timestampMillis"`
	URI             string     `json:"uri"`
	ImageURL        string     `json:"image_url"`
	ImageURLCamel   string     `json:"imageUrl"`
	IsMedia         bool       `json:"is_media"`
	IsMediaCamel    bool       `json:"isMedia"`
}

func (w wireMessage) toMessage() Message {
	m := Message{
		DocumentID: firstNonEmpty(string(w.DocID), string(w.DocumentID)),
		Sender:     w.Sender,
		ImageURL:   firstNonEmpty(w.ImageURL, w.ImageURLCamel, w.URI),
	}
	switch {
	case w.Message != nil:
		m.Text = *w.Message
	case w.Text != nil:
		m.Text = *w.Text
	}
	switch {
	case w.Time != nil:
		m.TimestampMillis = int64(*w.Time)
	case w.Timestamp != nil:
		m.TimestampMillis = int64(*w.Timestamp)
	case w.TimestampMillis != nil:
		m.TimestampMillis = int64(*w.TimestampMillis)
	}
	if w.IsMedia || w.IsMediaCamel {
		m.Text = ""
	}
	return m
}

type wireChatInfo struct {
	DisplayName      string       `json:"display_name"`
	DisplayNameCamel string       `json:"displayName"`
	LastMessage      *wireMessage `json:"last_message"`
	LastMessageCamel *wireMessage `json:"lastMessage"`
}

func (w wireChatInfo) name() string {
	return firstNonEmpty(w.DisplayName, w.DisplayNameCamel)
}

func (w wireChatInfo) last() *wireMessage {
	if w.LastMessage != nil {
		return w.LastMessage
	}
	return w.LastMessageCamel
}

type wireSearchResult struct {
	ChatName         string       `json:"chat_name"`
	ChatNameCamel    string       `json:"chatName"`
	ConversationName string       `json:"conversationName"`
	Platform         string       `json:"platform"`
	MessageDetails   *wireMessage `json:"message_details"`
	Details          *wireMessage `json:"messageDetails"`
}

func (w wireSearchResult) toResult() SearchResult {
	r := SearchResult{
		ConversationName: firstNonEmpty(w.ChatName, w.ChatNameCamel, w.ConversationName),
		Platform:         Platform(strings.ToLower(w.Platform)),
	}
	switch {
	case w.MessageDetails != nil:
		r.MessageDetails = w.MessageDetails.toMessage()
	case w.Details != nil:
		r.MessageDetails = w.Details.toMessage()
	}
	return r
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

type wireCurrentUser struct {
	CurrentUser *string `json:"current_user"`
}

// flexString decodes a JSON string or number into its textual form.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("doc id: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// flexInt decodes a JSON integer, float or numeric string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(i)
		return nil
	}
	fl, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	*f = flexInt(math.Round(fl))
	return nil
}

// docIDValue encodes a document id the way the backend indexes it:
// numeric ids go out as JSON numbers, anything else as a string.
func docIDValue(id string) any {
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return json.Number(id)
	}
	return id
}
