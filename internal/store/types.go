package store

// SearchEntry is one issued search query.
type SearchEntry struct {
	ID        int64
	Query     string
	Mode      string // keyword, proximity
	Limit     int    // top n or proximity range
	Results   int
	CreatedAt int64 // unix millis
}

// OpenedConversation is the last anchor a conversation was opened on.
type OpenedConversation struct {
	PII         string
	AnchorDocID string
	OpenedAt    int64 // unix millis
}
