package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainchat "valikoo/internal/domain/chat"
)

func TestFindOrCreateConversationIdempotent(t *testing.T) {
	s := NewChatStore()
	ctx := context.Background()

	first, err := s.FindOrCreateConversation(ctx, "alice", "bob", "prod-1")
	require.NoError(t, err)

	// Same pair in reverse order resolves to the same thread.
	second, err := s.FindOrCreateConversation(ctx, "bob", "alice", "prod-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// A different product context is a different thread.
	third, err := s.FindOrCreateConversation(ctx, "alice", "bob", "prod-2")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, third.ID)

	direct, err := s.FindOrCreateConversation(ctx, "alice", "bob", "")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, direct.ID)
}

func TestFindOrCreateConversationConcurrent(t *testing.T) {
	s := NewChatStore()
	ctx := context.Background()

	const callers = 16
	ids := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, err := s.FindOrCreateConversation(ctx, "alice", "bob", "prod-1")
			require.NoError(t, err)
			ids <- conv.ID
		}()
	}
	wg.Wait()
	close(ids)

	// Every racing caller lands on the same thread.
	first := <-ids
	for id := range ids {
		require.Equal(t, first, id)
	}

	convs, err := s.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 1)
}

func TestFindOrCreateConversationRejectsSelf(t *testing.T) {
	s := NewChatStore()
	_, err := s.FindOrCreateConversation(context.Background(), "alice", "alice", "")
	require.ErrorIs(t, err, domainchat.ErrSelfConversation)
}

func TestAppendMessageValidation(t *testing.T) {
	s := NewChatStore()
	ctx := context.Background()
	conv, err := s.FindOrCreateConversation(ctx, "alice", "bob", "")
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, "missing", "alice", "hi", "")
	require.ErrorIs(t, err, domainchat.ErrConversationNotFound)

	_, err = s.AppendMessage(ctx, conv.ID, "mallory", "hi", "")
	require.ErrorIs(t, err, domainchat.ErrNotParticipant)

	_, err = s.AppendMessage(ctx, conv.ID, "alice", "   ", "")
	require.ErrorIs(t, err, domainchat.ErrContentRequired)
}

func TestAppendMessageUpdatesConversation(t *testing.T) {
	s := NewChatStore()
	ctx := context.Background()
	conv, err := s.FindOrCreateConversation(ctx, "alice", "bob", "")
	require.NoError(t, err)

	msg, err := s.AppendMessage(ctx, conv.ID, "alice", "hello", "")
	require.NoError(t, err)
	require.Equal(t, domainchat.MessageTypeText, msg.Type)
	require.Equal(t, domainchat.StatusDelivered, msg.Status)
	require.Empty(t, msg.ReadBy)

	updated, err := s.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Equal(t, "hello", updated.LastMessage)
	require.Equal(t, msg.Timestamp, updated.LastMessageTime)
}

func TestAppendMessageTimestampsNeverRegress(t *testing.T) {
	s := NewChatStore()
	ctx := context.Background()
	conv, err := s.FindOrCreateConversation(ctx, "alice", "bob", "")
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	first, err := s.AppendMessage(ctx, conv.ID, "alice", "one", "")
	require.NoError(t, err)

	// Clock goes backwards; the ordering key must not.
	clock = base.Add(-time.Minute)
	second, err := s.AppendMessage(ctx, conv.ID, "bob", "two", "")
	require.NoError(t, err)
	require.False(t, second.Timestamp.Before(first.Timestamp))

	msgs, total, err := s.ListMessages(ctx, conv.ID, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "one", msgs[0].Content)
	require.Equal(t, "two", msgs[1].Content)
}

func TestListMessagesPagination(t *testing.T) {
	s := NewChatStore()
	ctx := context.Background()
	conv, err := s.FindOrCreateConversation(ctx, "alice", "bob", "")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.AppendMessage(ctx, conv.ID, "alice", "msg", "")
		require.NoError(t, err)
	}

	page1, total, err := s.ListMessages(ctx, conv.ID, 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, page1, 2)

	page3, total, err := s.ListMessages(ctx, conv.ID, 3, 2)
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, page3, 1)

	beyond, total, err := s.ListMessages(ctx, conv.ID, 4, 2)
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Empty(t, beyond)

	_, _, err = s.ListMessages(ctx, "missing", 1, 10)
	require.ErrorIs(t, err, domainchat.ErrConversationNotFound)
}

func TestMarkReadIdempotent(t *testing.T) {
	s := NewChatStore()
	ctx := context.Background()
	conv, err := s.FindOrCreateConversation(ctx, "alice", "bob", "")
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, conv.ID, "alice", "one", "")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conv.ID, "alice", "two", "")
	require.NoError(t, err)

	unread, err := s.UnreadCount(ctx, conv.ID, "bob")
	require.NoError(t, err)
	require.EqualValues(t, 2, unread)

	require.NoError(t, s.MarkRead(ctx, conv.ID, "bob"))
	require.NoError(t, s.MarkRead(ctx, conv.ID, "bob"))

	unread, err = s.UnreadCount(ctx, conv.ID, "bob")
	require.NoError(t, err)
	require.Zero(t, unread)

	msgs, _, err := s.ListMessages(ctx, conv.ID, 1, 10)
	require.NoError(t, err)
	for _, m := range msgs {
		require.Equal(t, []string{"bob"}, m.ReadBy)
	}

	// The sender's own messages never count against them.
	unread, err = s.UnreadCount(ctx, conv.ID, "alice")
	require.NoError(t, err)
	require.Zero(t, unread)
}

func TestListConversationsOrdering(t *testing.T) {
	s := NewChatStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	first, err := s.FindOrCreateConversation(ctx, "alice", "bob", "")
	require.NoError(t, err)
	clock = base.Add(time.Minute)
	second, err := s.FindOrCreateConversation(ctx, "alice", "carol", "")
	require.NoError(t, err)

	// Newest activity first; a fresh message moves the thread up.
	clock = base.Add(2 * time.Minute)
	_, err = s.AppendMessage(ctx, first.ID, "bob", "ping", "")
	require.NoError(t, err)

	conversations, err := s.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	require.Equal(t, first.ID, conversations[0].ID)
	require.Equal(t, second.ID, conversations[1].ID)

	conversations, err = s.ListConversations(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, conversations, 1)

	conversations, err = s.ListConversations(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, conversations)
}

func TestLastMessage(t *testing.T) {
	s := NewChatStore()
	ctx := context.Background()
	conv, err := s.FindOrCreateConversation(ctx, "alice", "bob", "")
	require.NoError(t, err)

	last, err := s.LastMessage(ctx, conv.ID)
	require.NoError(t, err)
	require.Nil(t, last)

	_, err = s.AppendMessage(ctx, conv.ID, "alice", "one", "")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conv.ID, "bob", "two", "")
	require.NoError(t, err)

	last, err = s.LastMessage(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, "two", last.Content)
	require.Equal(t, "bob", last.SenderID)
}
