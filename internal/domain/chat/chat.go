package chat

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrNotParticipant       = errors.New("chat: not a participant")
	ErrSelfConversation     = errors.New("chat: cannot start a conversation with yourself")
	ErrContentRequired      = errors.New("chat: message content is required")
)

// MessageTypeText is the default message payload kind.
const MessageTypeText = "text"

// StatusDelivered is stamped on every persisted message.
const StatusDelivered = "delivered"

// Conversation is a thread between exactly two identities, optionally scoped
// to one product. The participant pair is immutable after creation.
type Conversation struct {
	ID              string
	Participants    []string
	ProductID       string
	LastMessage     string
	LastMessageTime time.Time
	CreatedAt       time.Time
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the peer of userID, or "" when userID is not a
// participant.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	Type           string
	Timestamp      time.Time
	Status         string
	ReadBy         []string
}

func (m *Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r == userID {
			return true
		}
	}
	return false
}

// Store is the persistence contract the realtime core and the HTTP messaging
// handlers rely on.
type Store interface {
	// FindOrCreateConversation returns the existing thread for the exact
	// pair+product, creating one with empty last-message fields otherwise.
	FindOrCreateConversation(ctx context.Context, userA, userB, productID string) (*Conversation, error)
	Conversation(ctx context.Context, id string) (*Conversation, error)
	// ListConversations returns the user's threads ordered by last activity,
	// most recent first.
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	// AppendMessage persists a message and updates the conversation's
	// denormalized last-message fields. Fails with ErrConversationNotFound or
	// ErrNotParticipant.
	AppendMessage(ctx context.Context, conversationID, senderID, content, msgType string) (*Message, error)
	// ListMessages returns one page ordered by timestamp ascending plus the
	// total message count.
	ListMessages(ctx context.Context, conversationID string, page, pageSize int) ([]Message, int64, error)
	LastMessage(ctx context.Context, conversationID string) (*Message, error)
	// MarkRead adds readerID to ReadBy of every message not sent by readerID.
	// Idempotent.
	MarkRead(ctx context.Context, conversationID, readerID string) error
	UnreadCount(ctx context.Context, conversationID, userID string) (int64, error)
}

// NormalizeParticipants trims and orders a participant pair so the same two
// identities always produce the same key.
func NormalizeParticipants(userA, userB string) []string {
	a := strings.TrimSpace(userA)
	b := strings.TrimSpace(userB)
	if a > b {
		a, b = b, a
	}
	return []string{a, b}
}

// SameParticipants reports whether both sets name the same pair, order aside.
func SameParticipants(a, b []string) bool {
	if len(a) != 2 || len(b) != 2 {
		return false
	}
	return (a[0] == b[0] && a[1] == b[1]) || (a[0] == b[1] && a[1] == b[0])
}
