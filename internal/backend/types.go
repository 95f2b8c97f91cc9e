package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Platform identifies the chat service a conversation was exported from.
type Platform string

const (
	Instagram Platform = "instagram"
	WhatsApp  Platform = "whatsapp"
	WeChat    Platform = "wechat"
	Line      Platform = "line"
)

// Platforms lists the supported platforms in display order.
var Platforms = []Platform{Instagram, WhatsApp, WeChat, Line}

// ErrUnknownPlatform is returned by ParsePlatform for unsupported names.
var ErrUnknownPlatform = errors.New("unknown platform")

// ParsePlatform maps a case-insensitive name to a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownPlatform, s)
	}
	return p, nil
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

func (p Platform) String() string { return string(p) }

// Message is a single chat message. DocumentID is opaque but ordered within
// a conversation in the same order as TimestampMillis.
type Message struct {
	DocumentID      string
	Text            string
	Sender          string
	TimestampMillis int64
	ImageURL        string
}

// Conversation is one entry of the conversation directory.
type Conversation struct {
	InternalName string
	DisplayName  string
	LastMessage  *Message
}

// SearchResult is one ranked hit returned by keyword or proximity search.
type SearchResult struct {
	ConversationName string
	Platform         Platform
	MessageDetails   Message
}

// CurrentUser is the identity the backend associates with the local user.
type CurrentUser struct {
	Identity *string
}

// Is reports whether sender is the current user. Unknown identity matches nobody.
func (u CurrentUser) Is(sender string) bool {
	return u.Identity != nil && *u.Identity != "" && *u.Identity == sender
}
