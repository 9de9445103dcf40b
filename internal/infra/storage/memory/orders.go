package memory

import (
	"context"
	"errors"
	"sync"

	domainorder "valikoo/internal/domain/order"
)

// OrderRepository stores orders in memory.
type OrderRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domainorder.Order
	order []string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{byID: make(map[string]*domainorder.Order)}
}

func (r *OrderRepository) ByID(ctx context.Context, id string) (*domainorder.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if o, ok := r.byID[id]; ok {
		copyOrder := *o
		return &copyOrder, nil
	}
	return nil, domainorder.ErrNotFound
}

func (r *OrderRepository) Save(ctx context.Context, o *domainorder.Order) error {
	if o == nil || o.ID == "" {
		return errors.New("order: id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[o.ID]; !ok {
		r.order = append(r.order, o.ID)
	}
	copyOrder := *o
	r.byID[o.ID] = &copyOrder
	return nil
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]domainorder.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainorder.Order, 0)
	for _, id := range r.order {
		if o := r.byID[id]; o != nil && o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}
