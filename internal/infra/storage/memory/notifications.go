package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	domainnotification "valikoo/internal/domain/notification"
)

// NotificationRepository stores notifications in memory.
type NotificationRepository struct {
	mu   sync.RWMutex
	byID map[string]*domainnotification.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{byID: make(map[string]*domainnotification.Notification)}
}

func (r *NotificationRepository) Save(ctx context.Context, n *domainnotification.Notification) error {
	if n == nil || n.ID == "" {
		return errors.New("notification: id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copyNote := *n
	r.byID[n.ID] = &copyNote
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]domainnotification.Notification, error) {
	r.mu.RLock()
	out := make([]domainnotification.Notification, 0)
	for _, n := range r.byID {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok || n.UserID != userID {
		return domainnotification.ErrNotFound
	}
	n.Read = true
	return nil
}
