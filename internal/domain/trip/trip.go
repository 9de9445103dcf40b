package trip

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("trip: not found")
	ErrNotOwner = errors.New("trip: not owned by user")
)

type Trip struct {
	ID               string
	OwnerID          string
	DepartureAirport string
	ArrivalAirport   string
	DepartureDate    string
	ReturnDate       string
	ProductIDs       []string
	CreatedAt        time.Time
}

func (t *Trip) AddProduct(productID string) {
	for _, id := range t.ProductIDs {
		if id == productID {
			return
		}
	}
	t.ProductIDs = append(t.ProductIDs, productID)
}

func (t *Trip) RemoveProduct(productID string) {
	kept := t.ProductIDs[:0]
	for _, id := range t.ProductIDs {
		if id != productID {
			kept = append(kept, id)
		}
	}
	t.ProductIDs = kept
}

// Upcoming reports whether the trip departs on ref's date or later. Dates are
// ISO strings, so lexical comparison matches chronological order.
func (t *Trip) Upcoming(ref time.Time) bool {
	return t.DepartureDate >= ref.UTC().Format("2006-01-02")
}

type Repository interface {
	ByID(ctx context.Context, id string) (*Trip, error)
	Save(ctx context.Context, t *Trip) error
	ListByOwner(ctx context.Context, ownerID string) ([]Trip, error)
}
