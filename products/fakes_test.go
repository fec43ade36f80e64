package products

import (
	"context"
	"sync"
	"time"

	"storefront/models"
)

type fakeStore struct {
	mu         sync.Mutex
	products   map[string]models.Product
	categories []models.Category
	listCalls  int
	listErr    error
}

func newFakeStore(ps ...models.Product) *fakeStore {
	s := &fakeStore{products: map[string]models.Product{}}
	for _, p := range ps {
		s.products[p.ProductID] = p
	}
	return s
}

func (s *fakeStore) ListProducts(ctx context.Context, q Query) ([]models.Product, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var out []models.Product
	for _, p := range s.products {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeStore) GetProduct(ctx context.Context, id string) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return models.Product{}, models.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories, nil
}

func (s *fakeStore) CreateProduct(ctx context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ProductID] = p
	return nil
}

func (s *fakeStore) UpdateProduct(ctx context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ProductID]; !ok {
		return models.ErrNotFound
	}
	s.products[p.ProductID] = p
	return nil
}

func (s *fakeStore) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *fakeStore) CreateCategory(ctx context.Context, c models.Category) error {
	s.categories = append(s.categories, c)
	return nil
}

func (s *fakeStore) AddProductImage(ctx context.Context, id, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return models.ErrNotFound
	}
	p.Images = append(p.Images, path)
	s.products[id] = p
	return nil
}

// memCache keeps listing pages in a map.
type memCache struct {
	pages map[string]models.ProductPage
	ttls  map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{pages: map[string]models.ProductPage{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	p, ok := c.pages[key]
	if !ok {
		return false, nil
	}
	*(dst.(*models.ProductPage)) = p
	return true, nil
}

func (c *memCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	c.pages[key] = v.(models.ProductPage)
	c.ttls[key] = ttl
	return nil
}
