package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "users.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenCreatesParentDirAndSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "users.db")

	_, err := os.Stat(filepath.Dir(path))
	require.Error(t, err, "parent dir should not exist yet")

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Dir(path))
	require.NoError(t, err, "Open should have created the parent directory")

	_, err = os.Stat(path)
	require.NoError(t, err, "Open should have created the database file")
}

func TestSQLiteInsertThenLookup(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Insert(Record{Name: "alice_01", PasswordHash: "hash-1"}))

	rec, ok, err := store.Lookup("alice_01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice_01", rec.Name)
	assert.Equal(t, "hash-1", rec.PasswordHash)
}

func TestSQLiteLookupMiss(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Lookup("ghost_99")
	require.NoError(t, err)
	assert.False(t, ok)
}

// Invariant 3: a duplicate name is rejected with ErrDuplicateName, backed
// by the real sqlite UNIQUE constraint rather than an application-level
// check.
func TestSQLiteInsertDuplicateNameRejected(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Insert(Record{Name: "alice_01", PasswordHash: "hash-1"}))

	err := store.Insert(Record{Name: "alice_01", PasswordHash: "hash-2"})
	require.ErrorIs(t, err, ErrDuplicateName)

	// The first record must be untouched.
	rec, ok, err := store.Lookup("alice_01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hash-1", rec.PasswordHash)
}

func TestSQLiteReopenPreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Insert(Record{Name: "alice_01", PasswordHash: "hash-1"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, ok, err := reopened.Lookup("alice_01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hash-1", rec.PasswordHash)
}
