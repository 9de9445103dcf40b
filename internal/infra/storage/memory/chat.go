package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domainchat "valikoo/internal/domain/chat"
)

// ChatStore keeps conversations and messages in memory. Messages are held in
// append order, which also breaks timestamp ties.
type ChatStore struct {
	mu            sync.RWMutex
	conversations map[string]*domainchat.Conversation
	messages      map[string][]*domainchat.Message
	now           func() time.Time
}

func NewChatStore() *ChatStore {
	return &ChatStore{
		conversations: make(map[string]*domainchat.Conversation),
		messages:      make(map[string][]*domainchat.Message),
		now:           time.Now,
	}
}

func (s *ChatStore) FindOrCreateConversation(ctx context.Context, userA, userB, productID string) (*domainchat.Conversation, error) {
	participants := domainchat.NormalizeParticipants(userA, userB)
	if participants[0] == participants[1] {
		return nil, domainchat.ErrSelfConversation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.conversations {
		if conv.ProductID == productID && domainchat.SameParticipants(conv.Participants, participants) {
			return cloneConversation(conv), nil
		}
	}
	conv := &domainchat.Conversation{
		ID:           uuid.NewString(),
		Participants: participants,
		ProductID:    productID,
		CreatedAt:    s.now().UTC(),
	}
	s.conversations[conv.ID] = conv
	return cloneConversation(conv), nil
}

func (s *ChatStore) Conversation(ctx context.Context, id string) (*domainchat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, domainchat.ErrConversationNotFound
	}
	return cloneConversation(conv), nil
}

func (s *ChatStore) ListConversations(ctx context.Context, userID string) ([]domainchat.Conversation, error) {
	s.mu.RLock()
	out := make([]domainchat.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, *cloneConversation(conv))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return lastActivity(out[i]).After(lastActivity(out[j]))
	})
	return out, nil
}

func (s *ChatStore) AppendMessage(ctx context.Context, conversationID, senderID, content, msgType string) (*domainchat.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domainchat.ErrContentRequired
	}
	if msgType == "" {
		msgType = domainchat.MessageTypeText
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, domainchat.ErrConversationNotFound
	}
	if !conv.HasParticipant(senderID) {
		return nil, domainchat.ErrNotParticipant
	}

	now := s.now().UTC()
	// Timestamps are the per-conversation sort key; never go backwards even
	// if the clock does.
	if msgs := s.messages[conversationID]; len(msgs) > 0 {
		if last := msgs[len(msgs)-1].Timestamp; now.Before(last) {
			now = last
		}
	}
	msg := &domainchat.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           msgType,
		Timestamp:      now,
		Status:         domainchat.StatusDelivered,
		ReadBy:         []string{},
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	conv.LastMessage = content
	conv.LastMessageTime = now
	return cloneMessage(msg), nil
}

func (s *ChatStore) ListMessages(ctx context.Context, conversationID string, page, pageSize int) ([]domainchat.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return nil, 0, domainchat.ErrConversationNotFound
	}
	msgs := s.messages[conversationID]
	total := int64(len(msgs))
	start := (page - 1) * pageSize
	if start >= len(msgs) {
		return []domainchat.Message{}, total, nil
	}
	end := start + pageSize
	if end > len(msgs) {
		end = len(msgs)
	}
	out := make([]domainchat.Message, 0, end-start)
	for _, m := range msgs[start:end] {
		out = append(out, *cloneMessage(m))
	}
	return out, total, nil
}

func (s *ChatStore) LastMessage(ctx context.Context, conversationID string) (*domainchat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	if len(msgs) == 0 {
		return nil, nil
	}
	return cloneMessage(msgs[len(msgs)-1]), nil
}

func (s *ChatStore) MarkRead(ctx context.Context, conversationID, readerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return domainchat.ErrConversationNotFound
	}
	for _, m := range s.messages[conversationID] {
		if m.SenderID == readerID || m.ReadByUser(readerID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, readerID)
	}
	return nil
}

func (s *ChatStore) UnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, m := range s.messages[conversationID] {
		if m.SenderID != userID && !m.ReadByUser(userID) {
			count++
		}
	}
	return count, nil
}

func lastActivity(conv domainchat.Conversation) time.Time {
	if !conv.LastMessageTime.IsZero() {
		return conv.LastMessageTime
	}
	return conv.CreatedAt
}

func cloneConversation(c *domainchat.Conversation) *domainchat.Conversation {
	if c == nil {
		return nil
	}
	copyConv := *c
	copyConv.Participants = append([]string(nil), c.Participants...)
	return &copyConv
}

func cloneMessage(m *domainchat.Message) *domainchat.Message {
	if m == nil {
		return nil
	}
	copyMsg := *m
	copyMsg.ReadBy = append([]string(nil), m.ReadBy...)
	return &copyMsg
}

var _ domainchat.Store = (*ChatStore)(nil)
