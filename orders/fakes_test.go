package orders

import (
	"context"
	"sync"

	"storefront/models"
)

type fakeCatalog map[string]models.Product

func (c fakeCatalog) ProductsByIDs(ctx context.Context, ids []string) (map[string]models.Product, error) {
	out := make(map[string]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := c[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeStore struct {
	mu        sync.Mutex
	orders    map[string]models.Order
	items     map[string][]models.OrderItem
	cleared   map[string]bool
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:  map[string]models.Order{},
		items:   map[string][]models.OrderItem{},
		cleared: map[string]bool{},
	}
}

func (s *fakeStore) CreateOrder(ctx context.Context, o models.Order, items []models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.orders[o.OrderID]; ok {
		return models.ErrDuplicate
	}
	s.orders[o.OrderID] = o
	s.items[o.OrderID] = items
	return nil
}

func (s *fakeStore) GetOrder(ctx context.Context, id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, models.ErrNotFound
	}
	return o, nil
}

func (s *fakeStore) GetOrderItems(ctx context.Context, id string) ([]models.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id], nil
}

func (s *fakeStore) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if f.Status == "" || o.Status == f.Status {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeStore) HasCartClearingEvent(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared[id], nil
}

func testCatalog() fakeCatalog {
	return fakeCatalog{
		"p1": {ProductID: "p1", Name: "Kettle", Price: 600, Active: true},
		"p2": {ProductID: "p2", Name: "Toaster", Price: 800, Active: true},
		"p3": {ProductID: "p3", Name: "Retired", Price: 100, Active: false},
	}
}
