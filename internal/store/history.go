package store

import "time"

// RecordQuery appends a search to the history and returns its id.
// CreatedAt defaults to now.
func (db *DB) RecordQuery(e SearchEntry) (int64, error) {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	res, err := db.Exec(`
		INSERT INTO search_history (query, mode, limit_value, result_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.Query, e.Mode, e.Limit, e.Results, e.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentQueries returns up to limit searches, newest first.
func (db *DB) RecentQueries(limit int) ([]SearchEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, query, mode, limit_value, result_count, created_at
		FROM search_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []SearchEntry
	for rows.Next() {
		var e SearchEntry
		if err := rows.Scan(&e.ID, &e.Query, &e.Mode, &e.Limit, &e.Results, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearHistory deletes every recorded search and returns how many were removed.
func (db *DB) ClearHistory() (int64, error) {
	res, err := db.Exec("DELETE FROM search_history")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordOpened remembers the anchor a conversation was last opened on.
func (db *DB) RecordOpened(c OpenedConversation) error {
	if c.OpenedAt == 0 {
		c.OpenedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO opened_conversations (pii_name, anchor_doc_id, opened_at)
		VALUES (?, ?, ?)
		ON CONFLICT(pii_name) DO UPDATE SET
			anchor_doc_id = excluded.anchor_doc_id,
			opened_at = excluded.opened_at`,
		c.PII, c.AnchorDocID, c.OpenedAt,
	)
	return err
}

// RecentConversations returns up to limit conversations, most recently opened first.
func (db *DB) RecentConversations(limit int) ([]OpenedConversation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT pii_name, anchor_doc_id, opened_at
		FROM opened_conversations
		ORDER BY opened_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []OpenedConversation
	for rows.Next() {
		var c OpenedConversation
		if err := rows.Scan(&c.PII, &c.AnchorDocID, &c.OpenedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
