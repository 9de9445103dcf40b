package order

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("order: not found")

const StatusPending = "pending"

type Order struct {
	ID        string
	BuyerID   string
	SellerID  string
	ProductID string
	Quantity  int
	Price     float64
	Status    string
	CreatedAt time.Time
}

// Viewable reports whether userID may read the order.
func (o *Order) Viewable(userID string, isAdmin bool) bool {
	return isAdmin || o.BuyerID == userID || o.SellerID == userID
}

type Repository interface {
	ByID(ctx context.Context, id string) (*Order, error)
	Save(ctx context.Context, o *Order) error
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
}
