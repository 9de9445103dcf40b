package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainsaved "valikoo/internal/domain/saved"
)

type SavedItemRepository struct {
	col *mongo.Collection
}

func NewSavedItemRepository(db *mongo.Database) *SavedItemRepository {
	return &SavedItemRepository{col: db.Collection("saved_items")}
}

func (r *SavedItemRepository) Add(ctx context.Context, item *domainsaved.Item) error {
	filter := bson.M{"user_id": item.UserID, "product_id": item.ProductID}
	doc := savedItemDocument{
		ID:        item.ID,
		UserID:    item.UserID,
		ProductID: item.ProductID,
		CreatedAt: timeToTimestamp(item.CreatedAt),
	}
	// Bookmarking the same product twice keeps the original row.
	update := bson.M{"$setOnInsert": doc}
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *SavedItemRepository) Remove(ctx context.Context, userID, productID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"user_id": userID, "product_id": productID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainsaved.ErrNotFound
	}
	return nil
}

func (r *SavedItemRepository) ListByUser(ctx context.Context, userID string) ([]domainsaved.Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domainsaved.Item, 0)
	for cursor.Next(ctx) {
		var doc savedItemDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domainsaved.Item{
			ID:        doc.ID,
			UserID:    doc.UserID,
			ProductID: doc.ProductID,
			CreatedAt: timestampToTime(doc.CreatedAt),
		})
	}
	return out, cursor.Err()
}

func (r *SavedItemRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"user_id": userID})
}

type savedItemDocument struct {
	ID        string `bson:"_id"`
	UserID    string `bson:"user_id"`
	ProductID string `bson:"product_id"`
	CreatedAt int64  `bson:"created_at"`
}

var _ domainsaved.Repository = (*SavedItemRepository)(nil)
