package chatsession

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lenchat/internal/protocol"
)

func alwaysOK(name, password string) error { return nil }

func alwaysFail(name, password string) error { return protocol.ErrWrongNameOrPassword }

func newManager(auth AuthenticateFn, reg RegisterFn) *Manager {
	return NewManager(auth, reg)
}

func authenticate(t *testing.T, m *Manager, id string) {
	t.Helper()
	cmds := m.OnMessage(id, mustEncode(t, protocol.NewAuthenticationRequest("user_"+id, "Secret!9")))
	require.Len(t, cmds, 2)
	require.Equal(t, ResponseKindKey(cmds[0].Response), "AuthenticationResult")
}

func mustEncode(t *testing.T, req protocol.Request) []byte {
	t.Helper()
	data, err := req.MarshalJSON()
	require.NoError(t, err)
	return data
}

// ResponseKindKey is a small test helper translating a Response's Kind into
// the wire variant name, for readable assertions.
func ResponseKindKey(r protocol.Response) string {
	switch r.Kind {
	case protocol.ResponseAuthenticationResult:
		return "AuthenticationResult"
	case protocol.ResponseRegistrationResult:
		return "RegistrationResult"
	case protocol.ResponseMessage:
		return "Message"
	case protocol.ResponseConnection:
		return "Connection"
	default:
		return "Unknown"
	}
}

func TestMessageFromUnknownConnectionIsDropped(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("conn-a")
	assert.Nil(t, m.OnMessage("does-not-exist", []byte(`{}`)))
}

func TestAuthenticationSuccessEmitsSelfThenOthers(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("a")
	m.OnConnect("b")
	authenticate(t, m, "b") // b online first

	cmds := m.OnMessage("a", mustEncode(t, protocol.NewAuthenticationRequest("alice_01", "Secret!9")))
	require.Len(t, cmds, 2)

	assert.Equal(t, SendToSome, cmds[0].Kind)
	assert.Equal(t, []string{"a"}, cmds[0].Targets)
	assert.True(t, cmds[0].Response.AuthenticationResult.Result)

	assert.Equal(t, SendToSome, cmds[1].Kind)
	assert.Equal(t, []string{"b"}, cmds[1].Targets)
	assert.Equal(t, "alice_01", cmds[1].Response.Connection.UserName)
	assert.True(t, cmds[1].Response.Connection.IsConnected)
}

func TestAuthenticationFailureKeepsSessionUnauthenticated(t *testing.T) {
	m := newManager(alwaysFail, alwaysOK)
	m.OnConnect("a")

	cmds := m.OnMessage("a", mustEncode(t, protocol.NewAuthenticationRequest("ghost_99", "whatever1")))
	require.Len(t, cmds, 1)
	assert.False(t, cmds[0].Response.AuthenticationResult.Result)
	assert.Equal(t, protocol.ErrWrongNameOrPassword, *cmds[0].Response.AuthenticationResult.Error)

	// S6: subsequent Message produces no response while unauthenticated.
	cmds = m.OnMessage("a", mustEncode(t, protocol.NewMessageRequest("hello")))
	assert.Nil(t, cmds)
}

// S4: broadcast fan-out excludes the sender.
func TestAuthenticatedMessageExcludesSender(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("a")
	m.OnConnect("b")
	authenticate(t, m, "a")
	authenticate(t, m, "b")

	cmds := m.OnMessage("a", mustEncode(t, protocol.NewMessageRequest("hi")))
	require.Len(t, cmds, 1)
	assert.Equal(t, SendToSome, cmds[0].Kind)
	assert.Equal(t, []string{"b"}, cmds[0].Targets)
	assert.Equal(t, "hi", cmds[0].Response.Message.Message)
}

// Invariant 5: the target set for a Message command never contains the
// originating connection id.
func TestMessageCommandNeverTargetsSender(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("a")
	authenticate(t, m, "a")

	cmds := m.OnMessage("a", mustEncode(t, protocol.NewMessageRequest("solo")))
	require.Len(t, cmds, 1)
	assert.NotEqual(t, "a", cmds[0].Except)
	assert.NotContains(t, cmds[0].Targets, "a")
}

func TestUnauthenticatedMessageIsDropped(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("a")
	cmds := m.OnMessage("a", mustEncode(t, protocol.NewMessageRequest("hi")))
	assert.Nil(t, cmds)
}

func TestAuthenticatedSessionIgnoresReAuthAndRegistration(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("a")
	authenticate(t, m, "a")

	assert.Nil(t, m.OnMessage("a", mustEncode(t, protocol.NewAuthenticationRequest("alice_01", "Secret!9"))))
	assert.Nil(t, m.OnMessage("a", mustEncode(t, protocol.NewRegistrationRequest("alice_01", "Secret!9"))))
}

// S5: disconnect of an authenticated user notifies the remaining peers.
func TestDisconnectAuthenticatedNotifiesPeers(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("a")
	m.OnConnect("b")
	authenticate(t, m, "a")
	authenticate(t, m, "b")

	cmds := m.OnDisconnect("b")
	require.Len(t, cmds, 1)
	assert.Equal(t, SendToAll, cmds[0].Kind)
	assert.Equal(t, "user_b", cmds[0].Response.Connection.UserName)
	assert.False(t, cmds[0].Response.Connection.IsConnected)
}

func TestDisconnectUnauthenticatedIsSilent(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("a")
	assert.Nil(t, m.OnDisconnect("a"))
}

func TestMalformedFrameDropped(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("a")
	assert.Nil(t, m.OnMessage("a", []byte(`not json`)))
}

// A frame containing invalid UTF-8 must be dropped outright, not decoded
// with U+FFFD substitution — encoding/json would otherwise accept it and
// produce a well-formed (if mangled) Message request.
func TestInvalidUTF8FrameDropped(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("a")
	authenticate(t, m, "a")

	invalid := []byte("{\"Message\":{\"message\":\"hi \xff there\"}}")
	require.False(t, utf8.Valid(invalid))
	assert.Nil(t, m.OnMessage("a", invalid))

	// Sanity check: a structurally identical but valid-UTF-8 frame is not
	// dropped, confirming the rejection above is about encoding, not shape.
	cmds := m.OnMessage("a", mustEncode(t, protocol.NewMessageRequest("hi there")))
	require.Len(t, cmds, 1)
}

// Invariant 7: once authenticated, a session never reverts, even after a
// further authentication attempt, which dispatch ignores.
func TestSessionMonotonicity(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("a")
	authenticate(t, m, "a")

	sess := m.sessions["a"]
	require.True(t, sess.Authenticated)

	m.OnMessage("a", mustEncode(t, protocol.NewAuthenticationRequest("someone-else", "Secret!9")))
	assert.True(t, m.sessions["a"].Authenticated)
	assert.Equal(t, "user_a", m.sessions["a"].UserName)
}

func TestRegistrationDoesNotAuthenticate(t *testing.T) {
	m := newManager(alwaysOK, alwaysOK)
	m.OnConnect("a")

	cmds := m.OnMessage("a", mustEncode(t, protocol.NewRegistrationRequest("alice_01", "Secret!9")))
	require.Len(t, cmds, 1)
	assert.True(t, cmds[0].Response.RegistrationResult.Result)
	assert.False(t, m.sessions["a"].Authenticated)
}
