package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainnotification "valikoo/internal/domain/notification"
)

type NotificationRepository struct {
	col *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{col: db.Collection("notifications")}
}

func (r *NotificationRepository) Save(ctx context.Context, n *domainnotification.Notification) error {
	doc := notificationDocument{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		CreatedAt: timeToTimestamp(n.CreatedAt),
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]domainnotification.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domainnotification.Notification, 0)
	for cursor.Next(ctx) {
		var doc notificationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domainnotification.Notification{
			ID:        doc.ID,
			UserID:    doc.UserID,
			Kind:      doc.Kind,
			Title:     doc.Title,
			Body:      doc.Body,
			Read:      doc.Read,
			CreatedAt: timestampToTime(doc.CreatedAt),
		})
	}
	return out, cursor.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	filter := bson.M{"_id": id, "user_id": userID}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainnotification.ErrNotFound
	}
	return nil
}

type notificationDocument struct {
	ID        string `bson:"_id"`
	UserID    string `bson:"user_id"`
	Kind      string `bson:"kind"`
	Title     string `bson:"title"`
	Body      string `bson:"body"`
	Read      bool   `bson:"read"`
	CreatedAt int64  `bson:"created_at"`
}

var _ domainnotification.Repository = (*NotificationRepository)(nil)
