package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainproduct "valikoo/internal/domain/product"
)

// ProductRepository stores products in memory.
type ProductRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domainproduct.Product
	order []string
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{byID: make(map[string]*domainproduct.Product)}
}

func (r *ProductRepository) ByID(ctx context.Context, id string) (*domainproduct.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byID[id]; ok {
		return cloneProduct(p), nil
	}
	return nil, domainproduct.ErrNotFound
}

func (r *ProductRepository) Save(ctx context.Context, p *domainproduct.Product) error {
	if p == nil || p.ID == "" {
		return domainproduct.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.byID[p.ID] = cloneProduct(p)
	return nil
}

func (r *ProductRepository) Search(ctx context.Context, filter domainproduct.Filter) ([]domainproduct.Product, error) {
	r.mu.RLock()
	matched := make([]domainproduct.Product, 0)
	for _, id := range r.order {
		p := r.byID[id]
		if p == nil || !p.IsActive || p.Status == domainproduct.StatusFulfilled {
			continue
		}
		if !matchesFilter(p, filter) {
			continue
		}
		matched = append(matched, *cloneProduct(p))
	}
	r.mu.RUnlock()

	sortProducts(matched, filter.SortBy, filter.Order)
	return matched, nil
}

func (r *ProductRepository) ListByOwner(ctx context.Context, ownerID string) ([]domainproduct.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainproduct.Product, 0)
	for _, id := range r.order {
		if p := r.byID[id]; p != nil && p.OwnerID == ownerID {
			out = append(out, *cloneProduct(p))
		}
	}
	return out, nil
}

func (r *ProductRepository) ListSold(ctx context.Context, buyerID string) ([]domainproduct.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainproduct.Product, 0)
	for _, id := range r.order {
		p := r.byID[id]
		if p == nil || !p.IsSold {
			continue
		}
		if buyerID != "" && p.BuyerID != buyerID {
			continue
		}
		out = append(out, *cloneProduct(p))
	}
	return out, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func (r *ProductRepository) MarkFulfilled(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.OwnerID != ownerID {
		return domainproduct.ErrNotFound
	}
	p.IsActive = false
	p.Status = domainproduct.StatusFulfilled
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func matchesFilter(p *domainproduct.Product, f domainproduct.Filter) bool {
	if f.Query != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Query)) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.DepartureAirport != "" && !strings.EqualFold(p.DepartureAirport, f.DepartureAirport) {
		return false
	}
	if f.ArrivalAirport != "" && !strings.EqualFold(p.ArrivalAirport, f.ArrivalAirport) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.DepartureDate != "" && p.TravelDates.Departure < f.DepartureDate {
		return false
	}
	if f.ArrivalDate != "" && p.TravelDates.Return != "" && p.TravelDates.Return > f.ArrivalDate {
		return false
	}
	return true
}

func sortProducts(products []domainproduct.Product, sortBy, order string) {
	asc := strings.EqualFold(order, "asc")
	sort.SliceStable(products, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "price":
			less = products[i].Price < products[j].Price
		default:
			less = products[i].CreatedAt.Before(products[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})
}

func cloneProduct(p *domainproduct.Product) *domainproduct.Product {
	if p == nil {
		return nil
	}
	copyProduct := *p
	copyProduct.Images = append([]string(nil), p.Images...)
	return &copyProduct
}
