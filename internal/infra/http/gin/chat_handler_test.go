package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"valikoo/internal/infra/storage/memory"
	"valikoo/internal/realtime"
)

type recordConn struct {
	mu   sync.Mutex
	sent [][]byte
}

func (c *recordConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, append([]byte(nil), payload...))
	return nil
}

func (c *recordConn) Close() {}

func (c *recordConn) payloads() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

type chatFixture struct {
	handler ChatHandler
	chats   *memory.ChatStore
	alice   *recordConn
	bob     *recordConn
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := realtime.NewRegistry()
	alice := &recordConn{}
	bob := &recordConn{}
	registry.Bind("alice", alice)
	registry.Bind("bob", bob)

	chats := memory.NewChatStore()
	return &chatFixture{
		handler: ChatHandler{
			Chats:       chats,
			Users:       memory.NewUserRepository(),
			Products:    memory.NewProductRepository(),
			Broadcaster: realtime.NewBroadcaster(registry, nil),
		},
		chats: chats,
		alice: alice,
		bob:   bob,
	}
}

func jsonRequest(t *testing.T, method string, body any) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/", &buf)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return w, c
}

func asPrincipal(c *gin.Context, userID, role string) {
	setPrincipal(c, principal{ID: userID, Email: userID + "@example.com", Role: role})
}

func TestSendMessagePersistsAndBroadcasts(t *testing.T) {
	fx := newChatFixture(t)
	conv, err := fx.chats.FindOrCreateConversation(context.Background(), "alice", "bob", "")
	require.NoError(t, err)

	w, c := jsonRequest(t, http.MethodPost, gin.H{
		"conversationId": conv.ID,
		"content":        "hello bob",
	})
	asPrincipal(c, "alice", "buyer")
	fx.handler.Send(c)

	require.Equal(t, http.StatusCreated, w.Code)

	msgs, total, err := fx.chats.ListMessages(context.Background(), conv.ID, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "hello bob", msgs[0].Content)
	require.Equal(t, "alice", msgs[0].SenderID)

	// Both participants get the new_message event.
	for _, conn := range []*recordConn{fx.alice, fx.bob} {
		payloads := conn.payloads()
		require.Len(t, payloads, 1)
		var event realtime.NewMessageEvent
		require.NoError(t, json.Unmarshal(payloads[0], &event))
		require.Equal(t, realtime.EventNewMessage, event.Type)
		require.Equal(t, conv.ID, event.ConversationID)
		require.Equal(t, "hello bob", event.Message.Content)
		require.Equal(t, "alice", event.Message.SenderID)
	}
}

func TestSendMessageNonParticipantForbidden(t *testing.T) {
	fx := newChatFixture(t)
	conv, err := fx.chats.FindOrCreateConversation(context.Background(), "alice", "bob", "")
	require.NoError(t, err)

	w, c := jsonRequest(t, http.MethodPost, gin.H{
		"conversationId": conv.ID,
		"content":        "let me in",
	})
	asPrincipal(c, "mallory", "buyer")
	fx.handler.Send(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	_, total, err := fx.chats.ListMessages(context.Background(), conv.ID, 1, 10)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, fx.alice.payloads())
	require.Empty(t, fx.bob.payloads())
}

func TestSendMessageValidation(t *testing.T) {
	fx := newChatFixture(t)
	conv, err := fx.chats.FindOrCreateConversation(context.Background(), "alice", "bob", "")
	require.NoError(t, err)

	w, c := jsonRequest(t, http.MethodPost, gin.H{"conversationId": conv.ID, "content": "  "})
	asPrincipal(c, "alice", "buyer")
	fx.handler.Send(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, c = jsonRequest(t, http.MethodPost, gin.H{"conversationId": "missing", "content": "hi"})
	asPrincipal(c, "alice", "buyer")
	fx.handler.Send(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	w, c = jsonRequest(t, http.MethodPost, gin.H{"conversationId": conv.ID, "content": "hi"})
	fx.handler.Send(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMarkReadBroadcastsToOthersOnly(t *testing.T) {
	fx := newChatFixture(t)
	conv, err := fx.chats.FindOrCreateConversation(context.Background(), "alice", "bob", "")
	require.NoError(t, err)
	_, err = fx.chats.AppendMessage(context.Background(), conv.ID, "alice", "unread", "")
	require.NoError(t, err)

	w, c := jsonRequest(t, http.MethodPatch, nil)
	asPrincipal(c, "bob", "buyer")
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	fx.handler.MarkRead(c)

	require.Equal(t, http.StatusOK, w.Code)

	unread, err := fx.chats.UnreadCount(context.Background(), conv.ID, "bob")
	require.NoError(t, err)
	require.Zero(t, unread)

	// Only the other participant is notified.
	require.Empty(t, fx.bob.payloads())
	payloads := fx.alice.payloads()
	require.Len(t, payloads, 1)
	var event realtime.ReadReceiptEvent
	require.NoError(t, json.Unmarshal(payloads[0], &event))
	require.Equal(t, realtime.EventReadReceipt, event.Type)
	require.Equal(t, "bob", event.UserID)
	require.True(t, event.All)
}

func TestCreateConversationIdempotentAndValidated(t *testing.T) {
	fx := newChatFixture(t)

	w, c := jsonRequest(t, http.MethodPost, gin.H{"recipient_id": "bob", "product_id": "prod-1"})
	asPrincipal(c, "alice", "buyer")
	fx.handler.CreateConversation(c)
	require.Equal(t, http.StatusOK, w.Code)
	var first map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	w, c = jsonRequest(t, http.MethodPost, gin.H{"recipient_id": "alice", "product_id": "prod-1"})
	asPrincipal(c, "bob", "traveler")
	fx.handler.CreateConversation(c)
	require.Equal(t, http.StatusOK, w.Code)
	var second map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	require.Equal(t, first["id"], second["id"])

	w, c = jsonRequest(t, http.MethodPost, gin.H{"recipient_id": "alice"})
	asPrincipal(c, "alice", "buyer")
	fx.handler.CreateConversation(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, c = jsonRequest(t, http.MethodPost, gin.H{})
	asPrincipal(c, "alice", "buyer")
	fx.handler.CreateConversation(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMessagesAccessAndPaging(t *testing.T) {
	fx := newChatFixture(t)
	conv, err := fx.chats.FindOrCreateConversation(context.Background(), "alice", "bob", "")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := fx.chats.AppendMessage(context.Background(), conv.ID, "alice", fmt.Sprintf("msg %d", i), "")
		require.NoError(t, err)
	}

	w, c := jsonRequest(t, http.MethodGet, nil)
	asPrincipal(c, "mallory", "buyer")
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	fx.handler.ListMessages(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, c = jsonRequest(t, http.MethodGet, nil)
	asPrincipal(c, "bob", "buyer")
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	c.Request.URL.RawQuery = "page=1&page_size=2"
	fx.handler.ListMessages(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []map[string]any `json:"messages"`
		Total    int64            `json:"total"`
		Page     int              `json:"page"`
		PageSize int              `json:"page_size"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.EqualValues(t, 3, body.Total)
	require.Len(t, body.Messages, 2)
	require.Equal(t, 1, body.Page)
	require.Equal(t, 2, body.PageSize)
}

func TestListConversationsTravelerFilter(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()
	productScoped, err := fx.chats.FindOrCreateConversation(ctx, "alice", "bob", "prod-1")
	require.NoError(t, err)
	_, err = fx.chats.FindOrCreateConversation(ctx, "alice", "bob", "")
	require.NoError(t, err)

	w, c := jsonRequest(t, http.MethodGet, nil)
	asPrincipal(c, "bob", "traveler")
	fx.handler.ListConversations(c)
	require.Equal(t, http.StatusOK, w.Code)

	var travelerView []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &travelerView))
	require.Len(t, travelerView, 1)
	require.Equal(t, productScoped.ID, travelerView[0]["id"])

	w, c = jsonRequest(t, http.MethodGet, nil)
	asPrincipal(c, "alice", "buyer")
	fx.handler.ListConversations(c)
	require.Equal(t, http.StatusOK, w.Code)

	var buyerView []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &buyerView))
	require.Len(t, buyerView, 2)
}
