package userservice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lenchat/internal/credstore"
	"lenchat/internal/protocol"
)

func newTestService() *Service {
	return New(credstore.NewMemory())
}

// S1: register then authenticate succeeds.
func TestRegisterThenAuthenticateSucceeds(t *testing.T) {
	svc := newTestService()
	require.NoError(t, svc.Register("alice_01", "Secret!9"))
	require.NoError(t, svc.Authenticate("alice_01", "Secret!9"))
}

// Invariant 3: a second registration with the same name fails.
func TestDuplicateRegistrationRejected(t *testing.T) {
	svc := newTestService()
	require.NoError(t, svc.Register("alice_01", "Secret!9"))

	err := svc.Register("alice_01", "Different1")
	require.Error(t, err)
	regErr, ok := err.(protocol.RegistrationError)
	require.True(t, ok)
	assert.Equal(t, "NameAlreadyInUse", regErr.Kind)
}

// S2: bad password length is reported with bounds (8, 32).
func TestRegisterBadPasswordLength(t *testing.T) {
	svc := newTestService()
	err := svc.Register("goodname1", "abc")
	require.Error(t, err)
	regErr := err.(protocol.RegistrationError)
	require.Equal(t, "IncorrectPassword", regErr.Kind)
	assert.Equal(t, "IncorrectLength", regErr.Password.Kind)
	assert.EqualValues(t, 8, regErr.Password.Min)
	assert.EqualValues(t, 32, regErr.Password.Max)
}

// S3: a name with consecutive dots is rejected.
func TestRegisterNameWithConsecutiveDots(t *testing.T) {
	svc := newTestService()
	err := svc.Register("bob..xx", "Secret!9")
	require.Error(t, err)
	regErr := err.(protocol.RegistrationError)
	require.Equal(t, "IncorrectName", regErr.Kind)
	assert.Equal(t, "MultipleDots", regErr.Name.Kind)
}

// S6: authenticating as an unregistered user fails with WrongNameOrPassword.
func TestAuthenticateUnknownUser(t *testing.T) {
	svc := newTestService()
	err := svc.Authenticate("ghost_99", "whatever1")
	assert.Equal(t, protocol.ErrWrongNameOrPassword, err)
}

func TestAuthenticateWrongPasswordSameErrorAsUnknownUser(t *testing.T) {
	svc := newTestService()
	require.NoError(t, svc.Register("alice_01", "Secret!9"))

	err := svc.Authenticate("alice_01", "WrongPass1")
	assert.Equal(t, protocol.ErrWrongNameOrPassword, err)
}

// Invariant 4: invalid names fail without ever querying the store.
func TestRegisterInvalidNameNeverQueriesStore(t *testing.T) {
	store := &spyStore{}
	svc := New(store)

	err := svc.Register("bad", "Secret!9") // too short
	require.Error(t, err)
	assert.Equal(t, 0, store.lookups)
	assert.Equal(t, 0, store.inserts)
}

func TestValidateNameRules(t *testing.T) {
	cases := []struct {
		name    string
		wantErr string // "" means valid
	}{
		{"abcdefg", ""},
		{strings.Repeat("a", 32), ""},
		{"short", "IncorrectLength"},
		{strings.Repeat("a", 33), "IncorrectLength"},
		{"bad$name", "UnallowedCharacter"},
		{"bob..xyz", "MultipleDots"},
		{"bob__xyz", "MultipleUnderscores"},
		{"bob._xyz", ""},   // mixed ._ sequence allowed
		{"bob_.xyz", ""},   // mixed _. sequence allowed
		{".leading1", ""},  // leading dot allowed
		{"trailing1.", ""}, // trailing dot allowed
		{"_leading1", ""},  // leading underscore allowed
	}
	for _, tc := range cases {
		err := ValidateName(tc.name)
		if tc.wantErr == "" {
			assert.Nil(t, err, "name %q should be valid", tc.name)
			continue
		}
		require.NotNil(t, err, "name %q should be invalid", tc.name)
		assert.Equal(t, tc.wantErr, err.Kind, "name %q", tc.name)
	}
}

func TestValidatePasswordRules(t *testing.T) {
	cases := []struct {
		password string
		wantErr  string
	}{
		{"Secret!9", ""},
		{"short1", "IncorrectLength"},
		{strings.Repeat("a", 33), "IncorrectLength"},
		{"has a space", "UnallowedCharacter"},
	}
	for _, tc := range cases {
		err := ValidatePassword(tc.password)
		if tc.wantErr == "" {
			assert.Nil(t, err, "password %q should be valid", tc.password)
			continue
		}
		require.NotNil(t, err, "password %q should be invalid", tc.password)
		assert.Equal(t, tc.wantErr, err.Kind)
	}
}

// spyStore counts Lookup/Insert calls without actually storing anything,
// to assert that invalid names short-circuit before any store access.
type spyStore struct {
	lookups int
	inserts int
}

func (s *spyStore) Lookup(name string) (credstore.Record, bool, error) {
	s.lookups++
	return credstore.Record{}, false, nil
}

func (s *spyStore) Insert(rec credstore.Record) error {
	s.inserts++
	return nil
}

func (s *spyStore) Close() error { return nil }
