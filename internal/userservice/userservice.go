// Package userservice implements registration and authentication: name and
// password validation, bcrypt-family hashing, and uniqueness enforcement
// delegated to a credstore.Store. Grounded on
// original_source/src/user_service.rs (validation order and rules) and the
// pack's two direct bcrypt users,
// Ruthuvikas-chat-server-golang/main.go (bcrypt.GenerateFromPassword /
// CompareHashAndPassword against golang.org/x/crypto/bcrypt) and
// Danor93-Articles-Chat/internal/auth/auth.go (HashPassword /
// CheckPasswordHash wrapping the same primitive).
package userservice

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"lenchat/internal/credstore"
	"lenchat/internal/protocol"
)

const (
	minNameLen = 7
	maxNameLen = 32

	minPasswordLen = 8
	maxPasswordLen = 32
)

// Service validates credentials, hashes passwords, and talks to a
// credstore.Store. It holds no other state and performs no I/O beyond the
// store.
type Service struct {
	store credstore.Store
}

// New builds a Service backed by store.
func New(store credstore.Store) *Service {
	return &Service{store: store}
}

// Register validates name and password, verifies the name is not already
// taken, hashes password, and persists the record. The check order
// (name validity → uniqueness → password validity → hash → insert)
// matches spec §4.B exactly, including the uniqueness check preceding
// password validation.
func (s *Service) Register(name, password string) error {
	if err := ValidateName(name); err != nil {
		return protocol.IncorrectName(*err)
	}

	_, exists, lookupErr := s.store.Lookup(name)
	if lookupErr != nil {
		return fmt.Errorf("userservice: register %q: %w", name, lookupErr)
	}
	if exists {
		return protocol.NameAlreadyInUse()
	}

	if err := ValidatePassword(password); err != nil {
		return protocol.IncorrectPassword(*err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("userservice: hash password for %q: %w", name, err)
	}

	if err := s.store.Insert(credstore.Record{Name: name, PasswordHash: string(hash)}); err != nil {
		if err == credstore.ErrDuplicateName {
			return protocol.NameAlreadyInUse()
		}
		return fmt.Errorf("userservice: insert %q: %w", name, err)
	}
	return nil
}

// Authenticate loads the record by name and verifies password against its
// hash. Both "no such user" and "wrong password" report the same
// WrongNameOrPassword error so that account existence is never revealed.
func (s *Service) Authenticate(name, password string) error {
	rec, ok, err := s.store.Lookup(name)
	if err != nil {
		return fmt.Errorf("userservice: authenticate %q: %w", name, err)
	}
	if !ok {
		return protocol.ErrWrongNameOrPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return protocol.ErrWrongNameOrPassword
	}
	return nil
}

// ValidateName applies the deterministic name validator from spec §4.B: a
// length check, an ASCII-alphanumeric/'.'/'_' character-class check, and a
// single-pass walk rejecting consecutive '.' or consecutive '_' (mixed
// "._" or "_." sequences are allowed; leading/trailing '.' or '_' are
// allowed). No regular expression is used, matching
// original_source/src/user_service.rs's verify_name.
func ValidateName(name string) *protocol.UserNameError {
	if l := len(name); l < minNameLen || l > maxNameLen {
		return &protocol.UserNameError{Kind: "IncorrectLength", Min: minNameLen, Max: maxNameLen}
	}

	wasDot := false
	wasUnderscore := false
	for i := 0; i < len(name); i++ {
		ch := name[i]

		if isASCIIAlphanumeric(ch) {
			wasDot = false
			wasUnderscore = false
			continue
		}

		if ch == '.' {
			if wasDot {
				return &protocol.UserNameError{Kind: "MultipleDots"}
			}
			wasDot = true
			wasUnderscore = false
			continue
		}

		if ch == '_' {
			if wasUnderscore {
				return &protocol.UserNameError{Kind: "MultipleUnderscores"}
			}
			wasUnderscore = true
			wasDot = false
			continue
		}

		return &protocol.UserNameError{Kind: "UnallowedCharacter"}
	}

	return nil
}

// ValidatePassword applies the deterministic password validator from spec
// §4.B: a length check and an all-bytes-ASCII-graphic check (0x21..=0x7E;
// space is rejected).
func ValidatePassword(password string) *protocol.PasswordError {
	if l := len(password); l < minPasswordLen || l > maxPasswordLen {
		return &protocol.PasswordError{Kind: "IncorrectLength", Min: minPasswordLen, Max: maxPasswordLen}
	}

	for i := 0; i < len(password); i++ {
		ch := password[i]
		if ch < 0x21 || ch > 0x7E {
			return &protocol.PasswordError{Kind: "UnallowedCharacter"}
		}
	}

	return nil
}

func isASCIIAlphanumeric(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
