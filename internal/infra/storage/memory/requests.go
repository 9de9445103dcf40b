package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	domainrequest "valikoo/internal/domain/request"
)

// RequestRepository stores product requests in memory.
type RequestRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domainrequest.Request
	order []string
}

func NewRequestRepository() *RequestRepository {
	return &RequestRepository{byID: make(map[string]*domainrequest.Request)}
}

func (r *RequestRepository) ByID(ctx context.Context, id string) (*domainrequest.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if req, ok := r.byID[id]; ok {
		return cloneRequest(req), nil
	}
	return nil, domainrequest.ErrNotFound
}

func (r *RequestRepository) Save(ctx context.Context, req *domainrequest.Request) error {
	if req == nil || req.ID == "" {
		return errors.New("request: id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[req.ID]; !ok {
		r.order = append(r.order, req.ID)
	}
	r.byID[req.ID] = cloneRequest(req)
	return nil
}

func (r *RequestRepository) List(ctx context.Context, filter domainrequest.Filter) ([]domainrequest.Request, error) {
	r.mu.RLock()
	out := make([]domainrequest.Request, 0)
	for _, id := range r.order {
		req := r.byID[id]
		if req == nil || !matchesRequestFilter(req, filter) {
			continue
		}
		out = append(out, *cloneRequest(req))
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RequestRepository) Count(ctx context.Context, filter domainrequest.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, req := range r.byID {
		if matchesRequestFilter(req, filter) {
			count++
		}
	}
	return count, nil
}

func matchesRequestFilter(req *domainrequest.Request, f domainrequest.Filter) bool {
	if f.ProductID != "" && req.ProductID != f.ProductID {
		return false
	}
	if f.Status != "" && req.Status != f.Status {
		return false
	}
	// BuyerID and TravelerID combine as "either side" when both are set.
	if f.BuyerID != "" && f.TravelerID != "" {
		return req.BuyerID == f.BuyerID || req.TravelerID == f.TravelerID
	}
	if f.BuyerID != "" && req.BuyerID != f.BuyerID {
		return false
	}
	if f.TravelerID != "" && req.TravelerID != f.TravelerID {
		return false
	}
	return true
}

func cloneRequest(r *domainrequest.Request) *domainrequest.Request {
	if r == nil {
		return nil
	}
	copyReq := *r
	return &copyReq
}
