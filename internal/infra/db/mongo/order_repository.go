package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainorder "valikoo/internal/domain/order"
)

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection("orders")}
}

func (r *OrderRepository) ByID(ctx context.Context, id string) (*domainorder.Order, error) {
	var doc orderDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainorder.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *OrderRepository) Save(ctx context.Context, o *domainorder.Order) error {
	doc := newOrderDocument(o)
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]domainorder.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"buyer_id": buyerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domainorder.Order, 0)
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, cursor.Err()
}

type orderDocument struct {
	ID        string  `bson:"_id"`
	BuyerID   string  `bson:"buyer_id"`
	SellerID  string  `bson:"seller_id"`
	ProductID string  `bson:"product_id"`
	Quantity  int     `bson:"quantity"`
	Price     float64 `bson:"price"`
	Status    string  `bson:"status"`
	CreatedAt int64   `bson:"created_at"`
}

func newOrderDocument(o *domainorder.Order) orderDocument {
	return orderDocument{
		ID:        o.ID,
		BuyerID:   o.BuyerID,
		SellerID:  o.SellerID,
		ProductID: o.ProductID,
		Quantity:  o.Quantity,
		Price:     o.Price,
		Status:    o.Status,
		CreatedAt: timeToTimestamp(o.CreatedAt),
	}
}

func (d orderDocument) toAggregate() *domainorder.Order {
	return &domainorder.Order{
		ID:        d.ID,
		BuyerID:   d.BuyerID,
		SellerID:  d.SellerID,
		ProductID: d.ProductID,
		Quantity:  d.Quantity,
		Price:     d.Price,
		Status:    d.Status,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
}

var _ domainorder.Repository = (*OrderRepository)(nil)
