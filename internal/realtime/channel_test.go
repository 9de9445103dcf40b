package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"valikoo/internal/infra/storage/memory"
)

type fakeAuth struct {
	tokens map[string]string
}

func (a fakeAuth) Authenticate(ctx context.Context, token string) (string, error) {
	userID, ok := a.tokens[token]
	if !ok {
		return "", errors.New("invalid token")
	}
	return userID, nil
}

func newTestSession(t *testing.T, registry *Registry, chats *memory.ChatStore) (*session, *stubConn) {
	t.Helper()
	conn := &stubConn{}
	return &session{
		conn:        conn,
		registry:    registry,
		broadcaster: NewBroadcaster(registry, nil),
		auth:        fakeAuth{tokens: map[string]string{"token-alice": "alice"}},
		chats:       chats,
		state:       StateConnected,
	}, conn
}

func TestSessionMalformedFramesIgnored(t *testing.T) {
	registry := NewRegistry()
	sess, _ := newTestSession(t, registry, memory.NewChatStore())

	sess.handleFrame(context.Background(), []byte("not json"))
	sess.handleFrame(context.Background(), []byte(`{"type":"unknown"}`))
	sess.handleFrame(context.Background(), []byte(`{}`))

	require.Equal(t, StateConnected, sess.state)
	require.Empty(t, sess.userID)
}

func TestSessionAuthBindsConnection(t *testing.T) {
	registry := NewRegistry()
	sess, conn := newTestSession(t, registry, memory.NewChatStore())

	sess.handleFrame(context.Background(), []byte(`{"type":"auth","token":"token-alice"}`))

	require.Equal(t, StateAuthenticated, sess.state)
	require.Equal(t, "alice", sess.userID)
	conns := registry.ConnectionsFor("alice")
	require.Len(t, conns, 1)
	require.Same(t, conn, conns[0].(*stubConn))
}

func TestSessionAuthFailureNonFatal(t *testing.T) {
	registry := NewRegistry()
	sess, _ := newTestSession(t, registry, memory.NewChatStore())

	sess.handleFrame(context.Background(), []byte(`{"type":"auth","token":"bogus"}`))

	require.Equal(t, StateConnected, sess.state)
	require.Empty(t, registry.ConnectionsFor("alice"))

	// The handshake slot is spent; the channel keeps listening but a later
	// valid auth frame no longer binds.
	sess.handleFrame(context.Background(), []byte(`{"type":"auth","token":"token-alice"}`))
	require.Equal(t, StateConnected, sess.state)
	require.Empty(t, registry.ConnectionsFor("alice"))
}

func TestSessionAuthOnlyFirstFrame(t *testing.T) {
	registry := NewRegistry()
	sess, _ := newTestSession(t, registry, memory.NewChatStore())

	// A non-auth first frame consumes the handshake slot.
	sess.handleFrame(context.Background(), []byte(`{"type":"read_receipt","conversationId":"missing"}`))
	sess.handleFrame(context.Background(), []byte(`{"type":"auth","token":"token-alice"}`))

	require.Equal(t, StateConnected, sess.state)
	require.Empty(t, registry.ConnectionsFor("alice"))
}

func TestSessionSecondAuthIgnored(t *testing.T) {
	registry := NewRegistry()
	sess, _ := newTestSession(t, registry, memory.NewChatStore())
	sess.auth = fakeAuth{tokens: map[string]string{
		"token-alice": "alice",
		"token-bob":   "bob",
	}}

	sess.handleFrame(context.Background(), []byte(`{"type":"auth","token":"token-alice"}`))
	sess.handleFrame(context.Background(), []byte(`{"type":"auth","token":"token-bob"}`))

	require.Equal(t, "alice", sess.userID)
	require.Empty(t, registry.ConnectionsFor("bob"))
}

func TestSessionReadReceiptExcludesSender(t *testing.T) {
	registry := NewRegistry()
	chats := memory.NewChatStore()
	conv, err := chats.FindOrCreateConversation(context.Background(), "alice", "bob", "")
	require.NoError(t, err)

	aliceConn := &stubConn{}
	bobConn := &stubConn{}
	registry.Bind("alice", aliceConn)
	registry.Bind("bob", bobConn)

	sess, _ := newTestSession(t, registry, chats)
	sess.handleFrame(context.Background(), []byte(`{"type":"auth","token":"token-alice"}`))

	frame, err := json.Marshal(map[string]any{
		"type":           "read_receipt",
		"conversationId": conv.ID,
		"all":            true,
	})
	require.NoError(t, err)
	sess.handleFrame(context.Background(), frame)

	require.Empty(t, aliceConn.payloads())
	payloads := bobConn.payloads()
	require.Len(t, payloads, 1)

	var event ReadReceiptEvent
	require.NoError(t, json.Unmarshal(payloads[0], &event))
	require.Equal(t, EventReadReceipt, event.Type)
	require.Equal(t, conv.ID, event.ConversationID)
	require.Equal(t, "alice", event.UserID)
	require.True(t, event.All)
}

func TestSessionReadReceiptUnauthenticated(t *testing.T) {
	registry := NewRegistry()
	chats := memory.NewChatStore()
	conv, err := chats.FindOrCreateConversation(context.Background(), "alice", "bob", "")
	require.NoError(t, err)

	aliceConn := &stubConn{}
	bobConn := &stubConn{}
	registry.Bind("alice", aliceConn)
	registry.Bind("bob", bobConn)

	sess, _ := newTestSession(t, registry, chats)

	frame, err := json.Marshal(map[string]any{
		"type":           "read_receipt",
		"conversationId": conv.ID,
	})
	require.NoError(t, err)
	sess.handleFrame(context.Background(), frame)

	// No identity to exclude: both participants get the event with an empty
	// userId.
	for _, conn := range []*stubConn{aliceConn, bobConn} {
		payloads := conn.payloads()
		require.Len(t, payloads, 1)
		var event ReadReceiptEvent
		require.NoError(t, json.Unmarshal(payloads[0], &event))
		require.Empty(t, event.UserID)
	}
	require.Equal(t, StateConnected, sess.state)
}

func TestSessionReadReceiptUnknownConversation(t *testing.T) {
	registry := NewRegistry()
	sess, _ := newTestSession(t, registry, memory.NewChatStore())
	sess.handleFrame(context.Background(), []byte(`{"type":"auth","token":"token-alice"}`))

	sess.handleFrame(context.Background(), []byte(`{"type":"read_receipt","conversationId":"missing"}`))
	require.Equal(t, StateAuthenticated, sess.state)
}

func TestSessionTeardown(t *testing.T) {
	registry := NewRegistry()
	sess, conn := newTestSession(t, registry, memory.NewChatStore())
	sess.handleFrame(context.Background(), []byte(`{"type":"auth","token":"token-alice"}`))
	require.Len(t, registry.ConnectionsFor("alice"), 1)

	sess.teardown()
	require.Equal(t, StateClosed, sess.state)
	require.True(t, conn.isClosed())
	require.Empty(t, registry.ConnectionsFor("alice"))

	// Idempotent.
	sess.teardown()
	require.Equal(t, StateClosed, sess.state)
}

func TestSessionTeardownUnauthenticated(t *testing.T) {
	registry := NewRegistry()
	sess, conn := newTestSession(t, registry, memory.NewChatStore())

	sess.teardown()
	require.Equal(t, StateClosed, sess.state)
	require.True(t, conn.isClosed())
}
