// Package store keeps a profile's search history in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/gcsearch/internal/store/migrations"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the history.db of one profile.
type DB struct {
	*sql.DB
	path string
}

// Schema describes history.db after Migrate.
type Schema struct {
	From uint // version found on disk, 0 for a new file
	To   uint
	// Row counts after migrating.
	Searches int64
	Opened   int64
}

// Applied reports whether Migrate changed the schema.
func (s *Schema) Applied() bool { return s.From != s.To }

// Open opens the history database at path, creating the file and its
// directory when missing. WAL lets gcsearchctl read while the TUI records.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("history dir: %w", err)
	}
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_synchronous", "NORMAL")
	conn, err := sql.Open("sqlite3", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	return &DB{DB: conn, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Migrate brings the schema up to date and reports what the history holds.
// A dirty schema is not repaired; the error names the file to remove.
func (db *DB) Migrate() (*Schema, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}

	s := &Schema{}
	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return nil, fmt.Errorf("history version: %w", err)
	case dirty:
		return nil, fmt.Errorf("history schema dirty at version %d, remove %s", from, db.path)
	default:
		s.From = from
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	if s.To, _, err = m.Version(); err != nil {
		return nil, fmt.Errorf("history version: %w", err)
	}

	err = db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM search_history),
		(SELECT COUNT(*) FROM opened_conversations)`).Scan(&s.Searches, &s.Opened)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}
	return s, nil
}
