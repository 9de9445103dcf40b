package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainrequest "valikoo/internal/domain/request"
)

type RequestRepository struct {
	col *mongo.Collection
}

func NewRequestRepository(db *mongo.Database) *RequestRepository {
	return &RequestRepository{col: db.Collection("requests")}
}

func (r *RequestRepository) ByID(ctx context.Context, id string) (*domainrequest.Request, error) {
	var doc requestDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainrequest.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *RequestRepository) Save(ctx context.Context, req *domainrequest.Request) error {
	doc := newRequestDocument(req)
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *RequestRepository) List(ctx context.Context, filter domainrequest.Filter) ([]domainrequest.Request, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, requestQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domainrequest.Request, 0)
	for cursor.Next(ctx) {
		var doc requestDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, cursor.Err()
}

func (r *RequestRepository) Count(ctx context.Context, filter domainrequest.Filter) (int64, error) {
	return r.col.CountDocuments(ctx, requestQuery(filter))
}

// requestQuery combines BuyerID and TravelerID as "either side" so one call
// can list everything a user is involved in.
func requestQuery(f domainrequest.Filter) bson.M {
	query := bson.M{}
	if f.ProductID != "" {
		query["product_id"] = f.ProductID
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	switch {
	case f.BuyerID != "" && f.TravelerID != "":
		query["$or"] = bson.A{
			bson.M{"buyer_id": f.BuyerID},
			bson.M{"traveler_id": f.TravelerID},
		}
	case f.BuyerID != "":
		query["buyer_id"] = f.BuyerID
	case f.TravelerID != "":
		query["traveler_id"] = f.TravelerID
	}
	return query
}

type requestDocument struct {
	ID          string `bson:"_id"`
	ProductID   string `bson:"product_id"`
	BuyerID     string `bson:"buyer_id"`
	TravelerID  string `bson:"traveler_id"`
	Quantity    int    `bson:"quantity"`
	Status      string `bson:"status"`
	CreatedAt   int64  `bson:"created_at"`
	RespondedAt int64  `bson:"responded_at"`
}

func newRequestDocument(r *domainrequest.Request) requestDocument {
	return requestDocument{
		ID:          r.ID,
		ProductID:   r.ProductID,
		BuyerID:     r.BuyerID,
		TravelerID:  r.TravelerID,
		Quantity:    r.Quantity,
		Status:      r.Status,
		CreatedAt:   timeToTimestamp(r.CreatedAt),
		RespondedAt: timeToTimestamp(r.RespondedAt),
	}
}

func (d requestDocument) toAggregate() *domainrequest.Request {
	return &domainrequest.Request{
		ID:          d.ID,
		ProductID:   d.ProductID,
		BuyerID:     d.BuyerID,
		TravelerID:  d.TravelerID,
		Quantity:    d.Quantity,
		Status:      d.Status,
		CreatedAt:   timestampToTime(d.CreatedAt),
		RespondedAt: timestampToTime(d.RespondedAt),
	}
}

var _ domainrequest.Repository = (*RequestRepository)(nil)
