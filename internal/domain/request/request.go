package request

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("request: not found")
	ErrNotTraveler   = errors.New("request: only the addressed traveler can respond")
	ErrInvalidStatus = errors.New("request: invalid status")
)

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusDeclined  = "declined"
	StatusCompleted = "completed"
)

// Request is a buyer's ask for a traveler to bring a product.
type Request struct {
	ID          string
	ProductID   string
	BuyerID     string
	TravelerID  string
	Quantity    int
	Status      string
	CreatedAt   time.Time
	RespondedAt time.Time
}

// Respond transitions the request status on behalf of travelerID.
func (r *Request) Respond(travelerID, status string, now time.Time) error {
	if r.TravelerID != travelerID {
		return ErrNotTraveler
	}
	switch status {
	case StatusAccepted, StatusDeclined, StatusCompleted:
	default:
		return ErrInvalidStatus
	}
	r.Status = status
	r.RespondedAt = now.UTC()
	return nil
}

type Filter struct {
	ProductID  string
	BuyerID    string
	TravelerID string
	Status     string
}

type Repository interface {
	ByID(ctx context.Context, id string) (*Request, error)
	Save(ctx context.Context, r *Request) error
	// List returns requests matching the filter, newest first. BuyerID and
	// TravelerID combine as "either side".
	List(ctx context.Context, filter Filter) ([]Request, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}
