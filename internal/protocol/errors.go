package protocol

import (
	"encoding/json"
	"fmt"
)

// AuthenticationError is carried in AuthenticationResult. It has a single
// variant today; it is still modeled as a type (rather than a bare bool) so
// the wire shape has room to grow without breaking existing clients.
type AuthenticationError struct {
	Kind string // always "WrongNameOrPassword"
}

var ErrWrongNameOrPassword = AuthenticationError{Kind: "WrongNameOrPassword"}

func (e AuthenticationError) Error() string { return "wrong user name or password" }

func (e AuthenticationError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Kind)
}

func (e *AuthenticationError) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err != nil {
		return err
	}
	e.Kind = kind
	return nil
}

// UserNameError enumerates the ways a candidate user name can fail
// validation (see userservice.ValidateName).
type UserNameError struct {
	Kind     string // IncorrectLength | MultipleDots | MultipleUnderscores | UnallowedCharacter
	Min, Max uint32 // only meaningful when Kind == IncorrectLength
}

func (e UserNameError) Error() string {
	switch e.Kind {
	case "IncorrectLength":
		return fmt.Sprintf("incorrect length, should be between %d and %d", e.Min, e.Max)
	case "MultipleDots":
		return "cannot use multiple dots in succession"
	case "MultipleUnderscores":
		return "cannot use multiple underscores in succession"
	case "UnallowedCharacter":
		return "unallowed character, allowed only alphanumeric ASCII symbols, '.' and '_'"
	default:
		return e.Kind
	}
}

func (e UserNameError) MarshalJSON() ([]byte, error) {
	if e.Kind == "IncorrectLength" {
		return json.Marshal(map[string][2]uint32{e.Kind: {e.Min, e.Max}})
	}
	return json.Marshal(e.Kind)
}

func (e *UserNameError) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		e.Kind = asString
		return nil
	}
	var asObject map[string][2]uint32
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("protocol: malformed UserNameError: %w", err)
	}
	for kind, bounds := range asObject {
		e.Kind = kind
		e.Min, e.Max = bounds[0], bounds[1]
	}
	return nil
}

// PasswordError enumerates the ways a candidate password can fail
// validation (see userservice.ValidatePassword).
type PasswordError struct {
	Kind     string // IncorrectLength | UnallowedCharacter
	Min, Max uint32
}

func (e PasswordError) Error() string {
	switch e.Kind {
	case "IncorrectLength":
		return fmt.Sprintf("incorrect length, should be between %d and %d", e.Min, e.Max)
	case "UnallowedCharacter":
		return "unallowed character, allowed only graphic ASCII symbols"
	default:
		return e.Kind
	}
}

func (e PasswordError) MarshalJSON() ([]byte, error) {
	if e.Kind == "IncorrectLength" {
		return json.Marshal(map[string][2]uint32{e.Kind: {e.Min, e.Max}})
	}
	return json.Marshal(e.Kind)
}

func (e *PasswordError) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		e.Kind = asString
		return nil
	}
	var asObject map[string][2]uint32
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("protocol: malformed PasswordError: %w", err)
	}
	for kind, bounds := range asObject {
		e.Kind = kind
		e.Min, e.Max = bounds[0], bounds[1]
	}
	return nil
}

// RegistrationError enumerates the ways register() can fail.
type RegistrationError struct {
	Kind     string // IncorrectName | IncorrectPassword | NameAlreadyInUse
	Name     *UserNameError
	Password *PasswordError
}

func (e RegistrationError) Error() string {
	switch e.Kind {
	case "IncorrectName":
		return fmt.Sprintf("user name error: %s", e.Name.Error())
	case "IncorrectPassword":
		return fmt.Sprintf("password error: %s", e.Password.Error())
	case "NameAlreadyInUse":
		return "name is already taken"
	default:
		return e.Kind
	}
}

func IncorrectName(err UserNameError) RegistrationError {
	return RegistrationError{Kind: "IncorrectName", Name: &err}
}

func IncorrectPassword(err PasswordError) RegistrationError {
	return RegistrationError{Kind: "IncorrectPassword", Password: &err}
}

func NameAlreadyInUse() RegistrationError {
	return RegistrationError{Kind: "NameAlreadyInUse"}
}

func (e RegistrationError) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case "IncorrectName":
		return json.Marshal(map[string]*UserNameError{e.Kind: e.Name})
	case "IncorrectPassword":
		return json.Marshal(map[string]*PasswordError{e.Kind: e.Password})
	default:
		return json.Marshal(e.Kind)
	}
}

func (e *RegistrationError) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		e.Kind = asString
		return nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("protocol: malformed RegistrationError: %w", err)
	}
	for kind, raw := range probe {
		e.Kind = kind
		switch kind {
		case "IncorrectName":
			var inner UserNameError
			if err := json.Unmarshal(raw, &inner); err != nil {
				return err
			}
			e.Name = &inner
		case "IncorrectPassword":
			var inner PasswordError
			if err := json.Unmarshal(raw, &inner); err != nil {
				return err
			}
			e.Password = &inner
		}
	}
	return nil
}
