package saved

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("saved: item not found")

// Item bookmarks one product for one user.
type Item struct {
	ID        string
	UserID    string
	ProductID string
	CreatedAt time.Time
}

type Repository interface {
	// Add stores the bookmark; adding the same product twice is a no-op.
	Add(ctx context.Context, item *Item) error
	Remove(ctx context.Context, userID, productID string) error
	ListByUser(ctx context.Context, userID string) ([]Item, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}
