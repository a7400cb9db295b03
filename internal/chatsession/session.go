// Package chatsession implements the chat session state machine described
// in spec §4.C: a pure command generator over an in-memory per-connection
// table, with no I/O of its own. Grounded on
// original_source/src/server.rs (ChatServer, ChatServerMessage — the
// on_user_connect/on_user_message/on_user_disconnect shape this package
// generalizes from a single fixed "echo to everyone else" rule to full
// auth-gated dispatch) and on the separation of concerns in
// spitfire4040-chat-server/internal/server/hub.go, where the Hub never
// performs a network write itself — it only decides who gets what.
package chatsession

import (
	"sync"
	"unicode/utf8"

	"lenchat/internal/protocol"
)

// entry is one connection's chat state. UserName is meaningful only when
// Authenticated is true — the invariant "user name present iff
// authenticated" from spec §3 is maintained by never setting UserName
// except in the same step that flips Authenticated to true.
type entry struct {
	Authenticated bool
	UserName      string
}

// CommandKind identifies which fan-out action a Command requests.
type CommandKind int

const (
	SendToAll CommandKind = iota
	SendToAllExcept
	SendToSome
	DisconnectUser
)

// Command instructs the transport to deliver Response to a target set, or
// to drop a connection. The session logic never performs this I/O itself;
// see internal/transport for command execution.
type Command struct {
	Kind     CommandKind
	Except   string   // SendToAllExcept
	Targets  []string // SendToSome
	Response protocol.Response
	Target   string // DisconnectUser
}

func sendToAll(resp protocol.Response) Command {
	return Command{Kind: SendToAll, Response: resp}
}

func sendToAllExcept(except string, resp protocol.Response) Command {
	return Command{Kind: SendToAllExcept, Except: except, Response: resp}
}

func sendToSome(targets []string, resp protocol.Response) Command {
	return Command{Kind: SendToSome, Targets: targets, Response: resp}
}

// AuthenticateFn and RegisterFn let Manager delegate to the user service
// without importing it directly, keeping the session logic a pure
// transformer that is trivially testable without a real credential store.
type (
	AuthenticateFn func(name, password string) error
	RegisterFn     func(name, password string) error
)

// Manager holds the session table and dispatches requests to commands. All
// mutation happens under mu; the critical section is strictly the
// computation of the command list for one message and is never held
// across a network write (spec §5).
type Manager struct {
	mu           sync.Mutex
	sessions     map[string]*entry
	authenticate AuthenticateFn
	register     RegisterFn
}

// NewManager builds a Manager that delegates authentication and
// registration to the given functions (normally userservice.Service's
// Authenticate/Register methods).
func NewManager(authenticate AuthenticateFn, register RegisterFn) *Manager {
	return &Manager{
		sessions:     make(map[string]*entry),
		authenticate: authenticate,
		register:     register,
	}
}

// OnConnect registers a new unauthenticated session for id. It never
// produces commands.
func (m *Manager) OnConnect(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &entry{}
}

// OnDisconnect removes id's session. If it was authenticated, a SendToAll
// Connection{is_connected: false} notice is emitted so peers learn the
// user left; an unauthenticated session is removed silently.
func (m *Manager) OnDisconnect(id string) []Command {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	if !ok || !sess.Authenticated {
		return nil
	}
	return []Command{sendToAll(protocol.NewConnection(sess.UserName, false))}
}

// OnMessage decodes body as a Request and dispatches it against id's
// session. A body that is not valid UTF-8, or that fails to decode as a
// Request, drops the frame silently (spec §7): it returns no commands and
// no error to the caller, since a malformed inbound frame is not an
// application error in the sense the server reports over the wire. The
// UTF-8 check must happen before JSON decoding: encoding/json.Unmarshal
// does not reject invalid UTF-8 inside quoted strings, it silently
// substitutes U+FFFD, which would let an invalid frame through disguised
// as a valid decode.
func (m *Manager) OnMessage(id string, body []byte) []Command {
	if !utf8.Valid(body) {
		return nil
	}

	req, err := protocol.DecodeRequest(body)
	if err != nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil
	}

	if sess.Authenticated {
		return m.dispatchAuthenticated(id, sess, req)
	}
	return m.dispatchUnauthenticated(id, sess, req)
}

func (m *Manager) dispatchUnauthenticated(id string, sess *entry, req protocol.Request) []Command {
	switch req.Kind {
	case protocol.RequestAuthentication:
		if err := m.authenticate(req.Credentials.Name, req.Credentials.Password); err != nil {
			authErr, ok := err.(protocol.AuthenticationError)
			if !ok {
				// Store I/O failure: never leak internal error detail to the
				// wire, and never reveal whether the name exists.
				authErr = protocol.ErrWrongNameOrPassword
			}
			return []Command{sendToSome([]string{id}, protocol.NewAuthenticationResult(false, &authErr))}
		}

		sess.Authenticated = true
		sess.UserName = req.Credentials.Name

		return []Command{
			sendToSome([]string{id}, protocol.NewAuthenticationResult(true, nil)),
			sendToSome(m.otherAuthenticatedIDs(id), protocol.NewConnection(sess.UserName, true)),
		}

	case protocol.RequestRegistration:
		if err := m.register(req.Credentials.Name, req.Credentials.Password); err != nil {
			regErr, ok := err.(protocol.RegistrationError)
			if !ok {
				// Store I/O failure: surface as a generic name-in-use-shaped
				// failure rather than leaking internal error detail to the wire.
				regErr = protocol.NameAlreadyInUse()
			}
			return []Command{sendToSome([]string{id}, protocol.NewRegistrationResult(false, &regErr))}
		}
		return []Command{sendToSome([]string{id}, protocol.NewRegistrationResult(true, nil))}

	default:
		// Message{...} from an unauthenticated session is silently dropped.
		return nil
	}
}

func (m *Manager) dispatchAuthenticated(id string, sess *entry, req protocol.Request) []Command {
	if req.Kind != protocol.RequestMessage {
		// Authentication/Registration from an already-authenticated
		// session is silently dropped; sessions never revert to
		// unauthenticated (spec §3 monotonicity).
		return nil
	}
	return []Command{sendToSome(m.otherAuthenticatedIDs(id), protocol.NewMessage(sess.UserName, req.MessageText))}
}

// otherAuthenticatedIDs returns the connection ids of every authenticated
// session other than except. Must be called with mu held.
func (m *Manager) otherAuthenticatedIDs(except string) []string {
	ids := make([]string, 0, len(m.sessions))
	for id, sess := range m.sessions {
		if id == except || !sess.Authenticated {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
