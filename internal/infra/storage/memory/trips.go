package memory

import (
	"context"
	"errors"
	"sync"

	domaintrip "valikoo/internal/domain/trip"
)

// TripRepository stores trips in memory.
type TripRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domaintrip.Trip
	order []string
}

func NewTripRepository() *TripRepository {
	return &TripRepository{byID: make(map[string]*domaintrip.Trip)}
}

func (r *TripRepository) ByID(ctx context.Context, id string) (*domaintrip.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.byID[id]; ok {
		return cloneTrip(t), nil
	}
	return nil, domaintrip.ErrNotFound
}

func (r *TripRepository) Save(ctx context.Context, t *domaintrip.Trip) error {
	if t == nil || t.ID == "" {
		return errors.New("trip: id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	r.byID[t.ID] = cloneTrip(t)
	return nil
}

func (r *TripRepository) ListByOwner(ctx context.Context, ownerID string) ([]domaintrip.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domaintrip.Trip, 0)
	for _, id := range r.order {
		if t := r.byID[id]; t != nil && t.OwnerID == ownerID {
			out = append(out, *cloneTrip(t))
		}
	}
	return out, nil
}

func cloneTrip(t *domaintrip.Trip) *domaintrip.Trip {
	if t == nil {
		return nil
	}
	copyTrip := *t
	copyTrip.ProductIDs = append([]string(nil), t.ProductIDs...)
	return &copyTrip
}
