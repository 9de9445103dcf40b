package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "valikoo/internal/domain/chat"
)

// ChatStore persists conversations and messages in two collections. The
// conversation document carries denormalized last-message fields so thread
// lists never join against messages.
type ChatStore struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
}

func NewChatStore(db *mongo.Database) *ChatStore {
	conversations := db.Collection("conversations")
	messages := db.Collection("messages")
	// The pair+product index backs the duplicate-key recovery in
	// FindOrCreateConversation.
	_, _ = conversations.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "participants", Value: 1}, {Key: "product_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = messages.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return &ChatStore{
		conversations: conversations,
		messages:      messages,
	}
}

func (s *ChatStore) FindOrCreateConversation(ctx context.Context, userA, userB, productID string) (*domainchat.Conversation, error) {
	pair := domainchat.NormalizeParticipants(userA, userB)
	if pair[0] == pair[1] {
		return nil, domainchat.ErrSelfConversation
	}
	productID = strings.TrimSpace(productID)

	filter := bson.M{"participants": pair, "product_id": productID}
	var doc conversationDocument
	err := s.conversations.FindOne(ctx, filter).Decode(&doc)
	if err == nil {
		return doc.toAggregate(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	now := time.Now().UTC()
	doc = conversationDocument{
		ID:           uuid.NewString(),
		Participants: pair,
		ProductID:    productID,
		CreatedAt:    timeToTimestamp(now),
	}
	if _, err := s.conversations.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the race to a concurrent creator; fetch theirs.
			if ferr := s.conversations.FindOne(ctx, filter).Decode(&doc); ferr == nil {
				return doc.toAggregate(), nil
			}
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (s *ChatStore) Conversation(ctx context.Context, id string) (*domainchat.Conversation, error) {
	var doc conversationDocument
	if err := s.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrConversationNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (s *ChatStore) ListConversations(ctx context.Context, userID string) ([]domainchat.Conversation, error) {
	// Threads without messages sort by creation time.
	opts := options.Find().SetSort(bson.D{
		{Key: "last_message_time", Value: -1},
		{Key: "created_at", Value: -1},
	})
	cursor, err := s.conversations.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domainchat.Conversation, 0)
	for cursor.Next(ctx) {
		var doc conversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, cursor.Err()
}

func (s *ChatStore) AppendMessage(ctx context.Context, conversationID, senderID, content, msgType string) (*domainchat.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domainchat.ErrContentRequired
	}
	conv, err := s.Conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, domainchat.ErrNotParticipant
	}
	if msgType == "" {
		msgType = domainchat.MessageTypeText
	}

	now := time.Now().UTC()
	doc := messageDocument{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           msgType,
		Timestamp:      timeToTimestamp(now),
		Status:         domainchat.StatusDelivered,
		ReadBy:         []string{},
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{
		"last_message":      content,
		"last_message_time": doc.Timestamp,
	}}
	if _, err := s.conversations.UpdateOne(ctx, bson.M{"_id": conversationID}, update); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (s *ChatStore) ListMessages(ctx context.Context, conversationID string, page, pageSize int) ([]domainchat.Message, int64, error) {
	if _, err := s.Conversation(ctx, conversationID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	filter := bson.M{"conversation_id": conversationID}
	total, err := s.messages.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(page-1) * int64(pageSize)).
		SetLimit(int64(pageSize))
	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	out := make([]domainchat.Message, 0, pageSize)
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, total, cursor.Err()
}

func (s *ChatStore) LastMessage(ctx context.Context, conversationID string) (*domainchat.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	var doc messageDocument
	err := s.messages.FindOne(ctx, bson.M{"conversation_id": conversationID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (s *ChatStore) MarkRead(ctx context.Context, conversationID, readerID string) error {
	conv, err := s.Conversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(readerID) {
		return domainchat.ErrNotParticipant
	}
	filter := bson.M{
		"conversation_id": conversationID,
		"sender_id":       bson.M{"$ne": readerID},
	}
	update := bson.M{"$addToSet": bson.M{"read_by": readerID}}
	_, err = s.messages.UpdateMany(ctx, filter, update)
	return err
}

func (s *ChatStore) UnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"sender_id":       bson.M{"$ne": userID},
		"read_by":         bson.M{"$ne": userID},
	}
	return s.messages.CountDocuments(ctx, filter)
}

type conversationDocument struct {
	ID              string   `bson:"_id"`
	Participants    []string `bson:"participants"`
	ProductID       string   `bson:"product_id"`
	LastMessage     string   `bson:"last_message"`
	LastMessageTime int64    `bson:"last_message_time"`
	CreatedAt       int64    `bson:"created_at"`
}

func (d conversationDocument) toAggregate() *domainchat.Conversation {
	return &domainchat.Conversation{
		ID:              d.ID,
		Participants:    d.Participants,
		ProductID:       d.ProductID,
		LastMessage:     d.LastMessage,
		LastMessageTime: timestampToTime(d.LastMessageTime),
		CreatedAt:       timestampToTime(d.CreatedAt),
	}
}

type messageDocument struct {
	ID             string   `bson:"_id"`
	ConversationID string   `bson:"conversation_id"`
	SenderID       string   `bson:"sender_id"`
	Content        string   `bson:"content"`
	Type           string   `bson:"type"`
	Timestamp      int64    `bson:"timestamp"`
	Status         string   `bson:"status"`
	ReadBy         []string `bson:"read_by"`
}

func (d messageDocument) toAggregate() *domainchat.Message {
	return &domainchat.Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		Content:        d.Content,
		Type:           d.Type,
		Timestamp:      timestampToTime(d.Timestamp),
		Status:         d.Status,
		ReadBy:         d.ReadBy,
	}
}

var _ domainchat.Store = (*ChatStore)(nil)
