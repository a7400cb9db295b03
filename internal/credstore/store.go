// Package credstore defines the persistent credential-store contract
// (spec §4.A) and provides a sqlite-backed production implementation plus
// an in-memory implementation for tests. Grounded on
// original_source/src/server_database.rs (ServerDatabase trait,
// SQLite-backed impl) and the pack's own database wrapper pattern,
// internal/database/db.go in Danor93-Articles-Chat, adapted from Postgres
// to a local single-file sqlite database per spec §4.A ("opened against a
// local path").
package credstore

import "errors"

// ErrDuplicateName is returned by Insert when name already exists.
var ErrDuplicateName = errors.New("credstore: name already in use")

// Record is a persisted user credential: a unique name and its
// bcrypt-family password hash. The hash is never stored alongside,
// replaced by, or derivable from the plaintext password.
type Record struct {
	Name         string
	PasswordHash string
}

// Store is the credential-store contract consumed by userservice. Reads
// must be strongly consistent with prior writes from the same process;
// Insert must atomically enforce name uniqueness.
type Store interface {
	// Lookup returns the record for name, or ok == false if no such user
	// exists. A non-nil error indicates a store I/O failure.
	Lookup(name string) (record Record, ok bool, err error)

	// Insert adds a new record. It returns ErrDuplicateName if name is
	// already taken, or any other non-nil error on store I/O failure.
	Insert(record Record) error

	// Close releases any resources held by the store.
	Close() error
}
