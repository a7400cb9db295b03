package protocol

import (
	"encoding/json"
	"fmt"
)

// Credentials is the raw name/password pair a client submits for
// Authentication or Registration.
type Credentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CredentialsPayload wraps Credentials under the field name the wire format
// uses for both Authentication and Registration requests.
type CredentialsPayload struct {
	UserCredentialsRaw Credentials `json:"user_credentials_raw"`
}

// MessagePayload carries outbound chat text.
type MessagePayload struct {
	Message string `json:"message"`
}

// RequestKind identifies which variant a Request holds.
type RequestKind int

const (
	RequestUnknown RequestKind = iota
	RequestAuthentication
	RequestRegistration
	RequestMessage
)

// Request is the client→server tagged union described in spec §6. On the
// wire it is a single-key JSON object, e.g. {"Authentication":
// {"user_credentials_raw": {"name": "...", "password": "..."}}}. Decode
// leaves Kind == RequestUnknown and returns an error for anything else,
// which callers (internal/chatsession) treat as a dropped frame per §7.
type Request struct {
	Kind         RequestKind
	Credentials  Credentials
	MessageText  string
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if len(probe) != 1 {
		return fmt.Errorf("protocol: request must be a single-key object, got %d keys", len(probe))
	}
	for variant, raw := range probe {
		switch variant {
		case "Authentication":
			var p CredentialsPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			r.Kind = RequestAuthentication
			r.Credentials = p.UserCredentialsRaw
		case "Registration":
			var p CredentialsPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			r.Kind = RequestRegistration
			r.Credentials = p.UserCredentialsRaw
		case "Message":
			var p MessagePayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			r.Kind = RequestMessage
			r.MessageText = p.Message
		default:
			return fmt.Errorf("protocol: unknown request variant %q", variant)
		}
	}
	return nil
}

func (r Request) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RequestAuthentication:
		return json.Marshal(map[string]CredentialsPayload{
			"Authentication": {UserCredentialsRaw: r.Credentials},
		})
	case RequestRegistration:
		return json.Marshal(map[string]CredentialsPayload{
			"Registration": {UserCredentialsRaw: r.Credentials},
		})
	case RequestMessage:
		return json.Marshal(map[string]MessagePayload{
			"Message": {Message: r.MessageText},
		})
	default:
		return nil, fmt.Errorf("protocol: cannot encode request of unknown kind")
	}
}

// NewAuthenticationRequest builds an Authentication request.
func NewAuthenticationRequest(name, password string) Request {
	return Request{Kind: RequestAuthentication, Credentials: Credentials{Name: name, Password: password}}
}

// NewRegistrationRequest builds a Registration request.
func NewRegistrationRequest(name, password string) Request {
	return Request{Kind: RequestRegistration, Credentials: Credentials{Name: name, Password: password}}
}

// NewMessageRequest builds a Message request.
func NewMessageRequest(text string) Request {
	return Request{Kind: RequestMessage, MessageText: text}
}

// DecodeRequest decodes a single JSON-encoded Request from a frame's body.
// The caller is expected to have already rejected non-UTF-8 bodies (§4.D);
// a JSON decode failure here is reported to the caller, which drops the
// frame silently per §7 rather than disconnecting.
func DecodeRequest(body []byte) (Request, error) {
	var r Request
	err := json.Unmarshal(body, &r)
	return r, err
}
