package product

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired    = errors.New("product: id is required")
	ErrTitleRequired = errors.New("product: title is required")
	ErrNotFound      = errors.New("product: not found")
	ErrNotOwner      = errors.New("product: not owned by user")
)

const (
	StatusActive    = "active"
	StatusFulfilled = "fulfilled"
)

// TravelDates carries the traveler's planned departure and return as ISO dates.
type TravelDates struct {
	Departure string
	Return    string
}

type Product struct {
	ID               string
	OwnerID          string
	BuyerID          string
	Title            string
	Description      string
	Category         string
	Image            string
	Images           []string
	Price            float64
	Quantity         int
	DepartureAirport string
	ArrivalAirport   string
	TravelDates      TravelDates
	TripID           string
	Status           string
	IsActive         bool
	IsSold           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Filter narrows catalog searches. Zero values mean "no constraint".
type Filter struct {
	Query            string
	Category         string
	DepartureAirport string
	ArrivalAirport   string
	MinPrice         *float64
	MaxPrice         *float64
	DepartureDate    string
	ArrivalDate      string
	SortBy           string
	Order            string
}

type Repository interface {
	ByID(ctx context.Context, id string) (*Product, error)
	Save(ctx context.Context, p *Product) error
	Search(ctx context.Context, filter Filter) ([]Product, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Product, error)
	// ListSold returns sold products, optionally restricted to one buyer.
	ListSold(ctx context.Context, buyerID string) ([]Product, error)
	Count(ctx context.Context) (int64, error)
	// MarkFulfilled deactivates a product owned by ownerID. ErrNotFound when the
	// id does not resolve to a product owned by that user.
	MarkFulfilled(ctx context.Context, id, ownerID string) error
}

type CreateParams struct {
	ID               string
	OwnerID          string
	Title            string
	Description      string
	Category         string
	Image            string
	Images           []string
	Price            float64
	Quantity         int
	DepartureAirport string
	ArrivalAirport   string
	TravelDates      TravelDates
	TripID           string
	CreatedAt        time.Time
}

func NewProduct(params CreateParams) (*Product, error) {
	id := strings.TrimSpace(params.ID)
	if id == "" {
		return nil, ErrIDRequired
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &Product{
		ID:               id,
		OwnerID:          params.OwnerID,
		Title:            title,
		Description:      strings.TrimSpace(params.Description),
		Category:         strings.TrimSpace(params.Category),
		Image:            strings.TrimSpace(params.Image),
		Images:           append([]string(nil), params.Images...),
		Price:            params.Price,
		Quantity:         quantity,
		DepartureAirport: strings.TrimSpace(params.DepartureAirport),
		ArrivalAirport:   strings.TrimSpace(params.ArrivalAirport),
		TravelDates:      params.TravelDates,
		TripID:           strings.TrimSpace(params.TripID),
		Status:           StatusActive,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
