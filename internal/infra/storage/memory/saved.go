package memory

import (
	"context"
	"errors"
	"sync"

	domainsaved "valikoo/internal/domain/saved"
)

// SavedItemRepository stores bookmarks in memory, keyed per user.
type SavedItemRepository struct {
	mu     sync.RWMutex
	byUser map[string][]*domainsaved.Item
}

func NewSavedItemRepository() *SavedItemRepository {
	return &SavedItemRepository{byUser: make(map[string][]*domainsaved.Item)}
}

func (r *SavedItemRepository) Add(ctx context.Context, item *domainsaved.Item) error {
	if item == nil || item.UserID == "" || item.ProductID == "" {
		return errors.New("saved: user and product ids are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byUser[item.UserID] {
		if existing.ProductID == item.ProductID {
			return nil
		}
	}
	copyItem := *item
	r.byUser[item.UserID] = append(r.byUser[item.UserID], &copyItem)
	return nil
}

func (r *SavedItemRepository) Remove(ctx context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.byUser[userID]
	for i, item := range items {
		if item.ProductID == productID {
			r.byUser[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return domainsaved.ErrNotFound
}

func (r *SavedItemRepository) ListByUser(ctx context.Context, userID string) ([]domainsaved.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.byUser[userID]
	out := make([]domainsaved.Item, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (r *SavedItemRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byUser[userID])), nil
}
