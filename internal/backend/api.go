package backend

import (
	"context"
)

// Endpoint names relative to the /api base.
const (
	EndpointIsAlive        = "isAlive"
	EndpointCurrentUser    = "GetCurrentUser"
	EndpointListChats      = "GetAllParsedChatsForPlatform"
	EndpointChatInfo       = "GetInfoForGroupChat"
	EndpointTopN           = "GetTopNResultsFromSearch"
	EndpointProximity      = "ProximitySearch"
	EndpointWindow         = "GetChatsBetweenRangeForChatGivenPIIName"
	DefaultTopN            = 25
	DefaultMaxProximityGap = 25
)

// Caller is the transport used by API. *transport.Client implements it.
type Caller interface {
	Call(ctx context.Context, endpoint string, payload, out any) error
	Get(ctx context.Context, endpoint string, out any) error
}

// API exposes one typed method per backend endpoint.
type API struct {
	t Caller
}

// New creates an API on top of the given transport.
func New(t Caller) *API {
	return &API{t: t}
}

// IsAlive probes backend liveness. A nil error means the backend answered 2xx.
func (a *API) IsAlive(ctx context.Context) error {
	return a.t.Get(ctx, EndpointIsAlive, nil)
}

// CurrentUser looks up the identity of the local user.
func (a *API) CurrentUser(ctx context.Context) (CurrentUser, error) {
	var resp wireCurrentUser
	if err := a.t.Get(ctx, EndpointCurrentUser, &resp); err != nil {
		return CurrentUser{}, err
	}
	return CurrentUser{Identity: resp.CurrentUser}, nil
}

// ListChatIDs returns the internal names of every conversation parsed for p.
func (a *API) ListChatIDs(ctx context.Context, p Platform) ([]string, error) {
	var ids []string
	if err := a.t.Call(ctx, EndpointListChats, map[string]string{"platform": string(p)}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ChatInfo fetches the display name and last message of one conversation.
func (a *API) ChatInfo(ctx context.Context, id string) (Conversation, error) {
	var resp wireChatInfo
	if err := a.t.Call(ctx, EndpointChatInfo, map[string]string{"chat_name": id}, &resp); err != nil {
		return Conversation{}, err
	}
	c := Conversation{InternalName: id, DisplayName: resp.name()}
	if c.DisplayName == "" {
		c.DisplayName = id
	}
	if last := resp.last(); last != nil {
		m := last.toMessage()
		c.LastMessage = &m
	}
	return c, nil
}

// TopN runs a keyword search returning at most n results.
func (a *API) TopN(ctx context.Context, query string, n int) ([]SearchResult, error) {
	var resp []wireSearchResult
	if err := a.t.Call(ctx, EndpointTopN, map[string]any{"query": query, "n": n}, &resp); err != nil {
		return nil, err
	}
	return toResults(resp), nil
}

// Proximity runs a proximity search with the given term distance.
func (a *API) Proximity(ctx context.Context, query string, rng int) ([]SearchResult, error) {
	var resp []wireSearchResult
	if err := a.t.Call(ctx, EndpointProximity, map[string]any{"query": query, "range": rng}, &resp); err != nil {
		return nil, err
	}
	return toResults(resp), nil
}

// Window fetches messages of conversation pii relative to docID, oldest first.
// Positive n returns up to n messages on each side of the anchor, anchor
// included; negative n returns up to |n| messages strictly before it. Fewer
// are returned at history boundaries.
func (a *API) Window(ctx context.Context, pii, docID string, n int) ([]Message, error) {
	var resp []wireMessage
	payload := map[string]any{
		"pii_name": pii,
		"doc_id":   docIDValue(docID),
		"n":        n,
	}
	if err := a.t.Call(ctx, EndpointWindow, payload, &resp); err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(resp))
	for _, w := range resp {
		msgs = append(msgs, w.toMessage())
	}
	return msgs, nil
}

func toResults(resp []wireSearchResult) []SearchResult {
	out := make([]SearchResult, 0, len(resp))
	for _, w := range resp {
		out = append(out, w.toResult())
	}
	return out
}
