package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"valikoo/internal/domain/chat"
)

const readWait = 60 * time.Second

// Authenticator resolves an in-band bearer token to a user identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (userID string, err error)
}

// State of a live channel.
type State int

const (
	// StateConnected: accepted, unauthenticated. The channel never receives
	// addressed events in this state.
	StateConnected State = iota
	// StateAuthenticated: bound to a user identity in the registry.
	StateAuthenticated
	// StateClosed is terminal; cleanup has run.
	StateClosed
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type inboundFrame struct {
	Type           string `json:"type"`
	Token          string `json:"token,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	All            bool   `json:"all,omitempty"`
}

// ChannelHandler upgrades HTTP requests to live channels and runs each one in
// its own goroutine.
type ChannelHandler struct {
	Registry    *Registry
	Broadcaster *Broadcaster
	Auth        Authenticator
	Chats       chat.Store
	Logger      *slog.Logger
}

// Handle runs the per-connection loop. The deferred teardown unbinds the
// connection on every exit path.
func (h *ChannelHandler) Handle(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the response.
		return
	}

	conn := NewConnection(ws)
	conn.Start()

	sess := &session{
		conn:        conn,
		registry:    h.Registry,
		broadcaster: h.Broadcaster,
		auth:        h.Auth,
		chats:       h.Chats,
		logger:      h.Logger,
		state:       StateConnected,
	}
	defer sess.teardown()

	ws.SetReadLimit(1 << 20)
	_ = ws.SetReadDeadline(time.Now().Add(readWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readWait))
		sess.handleFrame(c.Request.Context(), data)
	}
}

// session holds per-channel state. It is touched only by the read-loop
// goroutine; the registry and broadcaster carry their own locking.
type session struct {
	conn        Conn
	registry    *Registry
	broadcaster *Broadcaster
	auth        Authenticator
	chats       chat.Store
	logger      *slog.Logger
	state       State
	userID      string
	handshook   bool
}

// handleFrame dispatches one inbound frame. Malformed JSON and unknown event
// types are ignored; nothing here may terminate the loop.
func (s *session) handleFrame(ctx context.Context, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}
	// Only the first decoded frame may carry the handshake; auth frames
	// arriving later are ignored.
	first := !s.handshook
	s.handshook = true

	switch frame.Type {
	case "auth":
		if first {
			s.handleAuth(ctx, frame)
		}
	case "read_receipt":
		s.handleReadReceipt(ctx, frame)
	}
}

// handleAuth binds the channel to a user identity. Failure is non-fatal: the
// channel stays connected and keeps listening, it just never gets addressed
// events and cannot retry the handshake.
func (s *session) handleAuth(ctx context.Context, frame inboundFrame) {
	if s.state != StateConnected || s.auth == nil {
		return
	}
	userID, err := s.auth.Authenticate(ctx, frame.Token)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("channel auth failed", "error", err)
		}
		return
	}
	s.registry.Bind(userID, s.conn)
	s.userID = userID
	s.state = StateAuthenticated
}

// handleReadReceipt fans the receipt out to every participant of the
// conversation except the sender. An unauthenticated sender has no identity,
// so no participant is excluded and the receipt carries an empty userId.
func (s *session) handleReadReceipt(ctx context.Context, frame inboundFrame) {
	if frame.ConversationID == "" || s.chats == nil || s.broadcaster == nil {
		return
	}
	conv, err := s.chats.Conversation(ctx, frame.ConversationID)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("read_receipt lookup failed", "conversation_id", frame.ConversationID, "error", err)
		}
		return
	}
	for _, participant := range conv.Participants {
		if participant == s.userID {
			continue
		}
		s.broadcaster.Broadcast(participant, ReadReceipt(frame.ConversationID, frame.All, s.userID))
	}
}

// teardown transitions to Closed and unbinds the connection exactly once.
func (s *session) teardown() {
	if s.state == StateClosed {
		return
	}
	if s.userID != "" {
		s.registry.Unbind(s.userID, s.conn)
	}
	s.state = StateClosed
	s.conn.Close()
}
