package notification

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("notification: not found")

type Notification struct {
	ID        string
	UserID    string
	Kind      string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}

type Repository interface {
	Save(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string) ([]Notification, error)
	// MarkRead flags the notification owned by userID. ErrNotFound when the id
	// does not resolve for that user.
	MarkRead(ctx context.Context, id, userID string) error
}
