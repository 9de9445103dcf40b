package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "valikoo/internal/app/outbox"
)

// OutboxStore keeps pending domain events in a collection drained by the
// worker. Claim uses FindOneAndUpdate so only one worker gets each event.
type OutboxStore struct {
	col *mongo.Collection
}

func NewOutboxStore(db *mongo.Database) *OutboxStore {
	return &OutboxStore{col: db.Collection("outbox_events")}
}

func (s *OutboxStore) Append(ctx context.Context, doc *appoutbox.EventDocument) error {
	if doc == nil || doc.ID == "" {
		return errors.New("outbox: event id is required")
	}
	_, err := s.col.InsertOne(ctx, newOutboxDocument(doc))
	return err
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*appoutbox.EventDocument, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"status":     bson.M{"$in": bson.A{appoutbox.StatusPending, appoutbox.StatusFailed}},
		"claimed_by": "",
		"$or": bson.A{
			bson.M{"next_attempt": 0},
			bson.M{"next_attempt": bson.M{"$lte": timeToTimestamp(now)}},
		},
	}
	update := bson.M{
		"$set": bson.M{"claimed_by": workerID},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "occurred_at", Value: 1}}).
		SetReturnDocument(options.After)

	var doc outboxDocument
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toEvent(), nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{
		"status":     appoutbox.StatusSent,
		"claimed_by": "",
	}}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("outbox: event not found")
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, retryAt time.Time, reason string) error {
	update := bson.M{"$set": bson.M{
		"status":       appoutbox.StatusFailed,
		"next_attempt": timeToTimestamp(retryAt),
		"last_error":   reason,
		"claimed_by":   "",
	}}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("outbox: event not found")
	}
	return nil
}

type outboxDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Aggregate   string            `bson:"aggregate"`
	Payload     []byte            `bson:"payload"`
	Headers     map[string]string `bson:"headers"`
	OccurredAt  int64             `bson:"occurred_at"`
	Attempts    int               `bson:"attempts"`
	Status      string            `bson:"status"`
	NextAttempt int64             `bson:"next_attempt"`
	LastError   string            `bson:"last_error"`
	ClaimedBy   string            `bson:"claimed_by"`
}

func newOutboxDocument(e *appoutbox.EventDocument) outboxDocument {
	return outboxDocument{
		ID:          e.ID,
		Name:        e.Name,
		Aggregate:   e.Aggregate,
		Payload:     e.Payload,
		Headers:     e.Headers,
		OccurredAt:  timeToTimestamp(e.OccurredAt),
		Attempts:    e.Attempts,
		Status:      e.Status,
		NextAttempt: timeToTimestamp(e.NextAttempt),
		LastError:   e.LastError,
		ClaimedBy:   e.ClaimedBy,
	}
}

func (d outboxDocument) toEvent() *appoutbox.EventDocument {
	return &appoutbox.EventDocument{
		ID:          d.ID,
		Name:        d.Name,
		Aggregate:   d.Aggregate,
		Payload:     d.Payload,
		Headers:     d.Headers,
		OccurredAt:  timestampToTime(d.OccurredAt),
		Attempts:    d.Attempts,
		Status:      d.Status,
		NextAttempt: timestampToTime(d.NextAttempt),
		LastError:   d.LastError,
		ClaimedBy:   d.ClaimedBy,
	}
}

var _ appoutbox.Store = (*OutboxStore)(nil)
