package credstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS user_credentials (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteStore is the production Store, a local single-file relational
// database. sqlite has no concurrent multi-writer story worth building
// for — a single *sql.DB handle serializes writers internally, which
// matches spec §4.A ("no concurrent multi-writer coordination across
// processes is required").
type SQLiteStore struct {
	db *sql.DB
}

// Open creates (or reopens) a SQLiteStore at path, creating its parent
// directory and schema if absent. I/O or schema errors here are fatal at
// startup per spec §4.A.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("credstore: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("credstore: open %s: %w", path, err)
	}
	// sqlite allows exactly one writer at a time; a single pooled
	// connection avoids SQLITE_BUSY errors under concurrent registration.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("credstore: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Lookup(name string) (Record, bool, error) {
	var rec Record
	row := s.db.QueryRow(`SELECT name, password_hash FROM user_credentials WHERE name = ?;`, name)
	switch err := row.Scan(&rec.Name, &rec.PasswordHash); {
	case errors.Is(err, sql.ErrNoRows):
		return Record{}, false, nil
	case err != nil:
		return Record{}, false, fmt.Errorf("credstore: lookup %q: %w", name, err)
	default:
		return rec, true, nil
	}
}

func (s *SQLiteStore) Insert(rec Record) error {
	_, err := s.db.Exec(
		`INSERT INTO user_credentials (name, password_hash) VALUES (?, ?);`,
		rec.Name, rec.PasswordHash,
	)
	if err == nil {
		return nil
	}
	if isUniqueConstraintErr(err) {
		return ErrDuplicateName
	}
	return fmt.Errorf("credstore: insert %q: %w", rec.Name, err)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueConstraintErr recognizes sqlite's UNIQUE constraint violation
// without importing the driver's error type directly, so callers don't
// need a build-tag-gated code path for non-cgo builds.
func isUniqueConstraintErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
