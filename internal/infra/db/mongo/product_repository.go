package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainproduct "valikoo/internal/domain/product"
)

type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection("products")}
}

func (r *ProductRepository) ByID(ctx context.Context, id string) (*domainproduct.Product, error) {
	var doc productDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproduct.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ProductRepository) Save(ctx context.Context, p *domainproduct.Product) error {
	doc := newProductDocument(p)
	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *ProductRepository) Search(ctx context.Context, filter domainproduct.Filter) ([]domainproduct.Product, error) {
	query := bson.M{
		"is_active": true,
		"status":    bson.M{"$ne": domainproduct.StatusFulfilled},
	}
	if filter.Query != "" {
		query["title"] = bson.M{"$regex": primitive.Regex{Pattern: regexQuoteMeta(filter.Query), Options: "i"}}
	}
	if filter.Category != "" {
		query["category"] = caseInsensitiveEq(filter.Category)
	}
	if filter.DepartureAirport != "" {
		query["departure_airport"] = caseInsensitiveEq(filter.DepartureAirport)
	}
	if filter.ArrivalAirport != "" {
		query["arrival_airport"] = caseInsensitiveEq(filter.ArrivalAirport)
	}
	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}
	if filter.DepartureDate != "" {
		query["travel_dates.departure"] = bson.M{"$gte": filter.DepartureDate}
	}
	if filter.ArrivalDate != "" {
		query["$or"] = bson.A{
			bson.M{"travel_dates.return": ""},
			bson.M{"travel_dates.return": bson.M{"$lte": filter.ArrivalDate}},
		}
	}

	sortField := "created_at"
	if filter.SortBy == "price" {
		sortField = "price"
	}
	direction := -1
	if strings.EqualFold(filter.Order, "asc") {
		direction = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: direction}})
	return r.find(ctx, query, opts)
}

func (r *ProductRepository) ListByOwner(ctx context.Context, ownerID string) ([]domainproduct.Product, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID}, nil)
}

func (r *ProductRepository) ListSold(ctx context.Context, buyerID string) ([]domainproduct.Product, error) {
	query := bson.M{"is_sold": true}
	if buyerID != "" {
		query["buyer_id"] = buyerID
	}
	return r.find(ctx, query, nil)
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *ProductRepository) MarkFulfilled(ctx context.Context, id, ownerID string) error {
	filter := bson.M{"_id": id, "owner_id": ownerID}
	update := bson.M{"$set": bson.M{
		"is_active":  false,
		"status":     domainproduct.StatusFulfilled,
		"updated_at": timeToTimestamp(time.Now().UTC()),
	}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainproduct.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]domainproduct.Product, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = r.col.Find(ctx, query, opts)
	} else {
		cursor, err = r.col.Find(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domainproduct.Product, 0)
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, cursor.Err()
}

func caseInsensitiveEq(value string) bson.M {
	return bson.M{"$regex": primitive.Regex{Pattern: "^" + regexQuoteMeta(value) + "$", Options: "i"}}
}

func regexQuoteMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

type productDocument struct {
	ID               string              `bson:"_id"`
	OwnerID          string              `bson:"owner_id"`
	BuyerID          string              `bson:"buyer_id"`
	Title            string              `bson:"title"`
	Description      string              `bson:"description"`
	Category         string              `bson:"category"`
	Image            string              `bson:"image"`
	Images           []string            `bson:"images"`
	Price            float64             `bson:"price"`
	Quantity         int                 `bson:"quantity"`
	DepartureAirport string              `bson:"departure_airport"`
	ArrivalAirport   string              `bson:"arrival_airport"`
	TravelDates      travelDatesDocument `bson:"travel_dates"`
	TripID           string              `bson:"trip_id"`
	Status           string              `bson:"status"`
	IsActive         bool                `bson:"is_active"`
	IsSold           bool                `bson:"is_sold"`
	CreatedAt        int64               `bson:"created_at"`
	UpdatedAt        int64               `bson:"updated_at"`
}

type travelDatesDocument struct {
	Departure string `bson:"departure"`
	Return    string `bson:"return"`
}

func newProductDocument(p *domainproduct.Product) productDocument {
	return productDocument{
		ID:               p.ID,
		OwnerID:          p.OwnerID,
		BuyerID:          p.BuyerID,
		Title:            p.Title,
		Description:      p.Description,
		Category:         p.Category,
		Image:            p.Image,
		Images:           p.Images,
		Price:            p.Price,
		Quantity:         p.Quantity,
		DepartureAirport: p.DepartureAirport,
		ArrivalAirport:   p.ArrivalAirport,
		TravelDates:      travelDatesDocument{Departure: p.TravelDates.Departure, Return: p.TravelDates.Return},
		TripID:           p.TripID,
		Status:           p.Status,
		IsActive:         p.IsActive,
		IsSold:           p.IsSold,
		CreatedAt:        timeToTimestamp(p.CreatedAt),
		UpdatedAt:        timeToTimestamp(p.UpdatedAt),
	}
}

func (d productDocument) toAggregate() *domainproduct.Product {
	return &domainproduct.Product{
		ID:               d.ID,
		OwnerID:          d.OwnerID,
		BuyerID:          d.BuyerID,
		Title:            d.Title,
		Description:      d.Description,
		Category:         d.Category,
		Image:            d.Image,
		Images:           d.Images,
		Price:            d.Price,
		Quantity:         d.Quantity,
		DepartureAirport: d.DepartureAirport,
		ArrivalAirport:   d.ArrivalAirport,
		TravelDates:      domainproduct.TravelDates{Departure: d.TravelDates.Departure, Return: d.TravelDates.Return},
		TripID:           d.TripID,
		Status:           d.Status,
		IsActive:         d.IsActive,
		IsSold:           d.IsSold,
		CreatedAt:        timestampToTime(d.CreatedAt),
		UpdatedAt:        timestampToTime(d.UpdatedAt),
	}
}

var _ domainproduct.Repository = (*ProductRepository)(nil)
