package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaintrip "valikoo/internal/domain/trip"
)

type TripRepository struct {
	col *mongo.Collection
}

func NewTripRepository(db *mongo.Database) *TripRepository {
	return &TripRepository{col: db.Collection("trips")}
}

func (r *TripRepository) ByID(ctx context.Context, id string) (*domaintrip.Trip, error) {
	var doc tripDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaintrip.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *TripRepository) Save(ctx context.Context, t *domaintrip.Trip) error {
	doc := newTripDocument(t)
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *TripRepository) ListByOwner(ctx context.Context, ownerID string) ([]domaintrip.Trip, error) {
	opts := options.Find().SetSort(bson.D{{Key: "departure_date", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domaintrip.Trip, 0)
	for cursor.Next(ctx) {
		var doc tripDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, cursor.Err()
}

type tripDocument struct {
	ID               string   `bson:"_id"`
	OwnerID          string   `bson:"owner_id"`
	DepartureAirport string   `bson:"departure_airport"`
	ArrivalAirport   string   `bson:"arrival_airport"`
	DepartureDate    string   `bson:"departure_date"`
	ReturnDate       string   `bson:"return_date"`
	ProductIDs       []string `bson:"product_ids"`
	CreatedAt        int64    `bson:"created_at"`
}

func newTripDocument(t *domaintrip.Trip) tripDocument {
	return tripDocument{
		ID:               t.ID,
		OwnerID:          t.OwnerID,
		DepartureAirport: t.DepartureAirport,
		ArrivalAirport:   t.ArrivalAirport,
		DepartureDate:    t.DepartureDate,
		ReturnDate:       t.ReturnDate,
		ProductIDs:       t.ProductIDs,
		CreatedAt:        timeToTimestamp(t.CreatedAt),
	}
}

func (d tripDocument) toAggregate() *domaintrip.Trip {
	return &domaintrip.Trip{
		ID:               d.ID,
		OwnerID:          d.OwnerID,
		DepartureAirport: d.DepartureAirport,
		ArrivalAirport:   d.ArrivalAirport,
		DepartureDate:    d.DepartureDate,
		ReturnDate:       d.ReturnDate,
		ProductIDs:       d.ProductIDs,
		CreatedAt:        timestampToTime(d.CreatedAt),
	}
}

var _ domaintrip.Repository = (*TripRepository)(nil)
