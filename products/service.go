package products

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"storefront/models"
	"storefront/utils"
)

// listingTTL bounds how stale a cached catalog page may be.
const listingTTL = 60 * time.Second

var ErrInvalidProduct = errors.New("invalid product")

// Store is the catalog persistence.
type Store interface {
	ListProducts(ctx context.Context, q Query) ([]models.Product, int64, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateProduct(ctx context.Context, p models.Product) error
	UpdateProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	CreateCategory(ctx context.Context, c models.Category) error
	AddProductImage(ctx context.Context, id, path string) error
}

// Cache holds serialised listing pages.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

type Service struct {
	store Store
	cache Cache
	now   func() time.Time
}

// NewService builds the catalog service. cache may be nil.
func NewService(store Store, cache Cache) *Service {
	return &Service{store: store, cache: cache, now: time.Now}
}

// List returns one page of the catalog, served from cache when possible.
// Cache failures only cost a trip to the store.
func (s *Service) List(ctx context.Context, q Query) (models.ProductPage, error) {
	key := q.CacheKey()
	if s.cache != nil {
		var page models.ProductPage
		hit, err := s.cache.Get(ctx, key, &page)
		if err != nil {
			log.Printf("products: cache get %q: %v", key, err)
		}
		if hit {
			return page, nil
		}
	}

	items, total, err := s.store.ListProducts(ctx, q)
	if err != nil {
		return models.ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	if items == nil {
		items = []models.Product{}
	}
	page := models.ProductPage{Items: items, Total: total, Page: q.Page, Limit: q.Limit}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, page, listingTTL); err != nil {
			log.Printf("products: cache set %q: %v", key, err)
		}
	}
	return page, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

// Create validates and stores a new product, assigning its id and slug.
func (s *Service) Create(ctx context.Context, p models.Product) (models.Product, error) {
	if err := validate(p); err != nil {
		return models.Product{}, err
	}
	now := s.now()
	p.ProductID = utils.GetUUID()
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	p.Images = nil
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// Update replaces the editable fields of an existing product. Id, images and
// creation time are kept.
func (s *Service) Update(ctx context.Context, id string, in models.Product) (models.Product, error) {
	if err := validate(in); err != nil {
		return models.Product{}, err
	}
	cur, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	cur.Name = in.Name
	cur.Description = in.Description
	cur.Price = in.Price
	cur.Stock = in.Stock
	cur.CategoryID = in.CategoryID
	cur.Brand = in.Brand
	cur.Characteristics = in.Characteristics
	cur.Active = in.Active
	if in.Slug != "" {
		cur.Slug = in.Slug
	}
	cur.UpdatedAt = s.now()
	if err := s.store.UpdateProduct(ctx, cur); err != nil {
		return models.Product{}, err
	}
	return cur, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteProduct(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return models.Category{}, fmt.Errorf("%w: category name is required", ErrInvalidProduct)
	}
	c.CategoryID = utils.GetUUID()
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return models.Category{}, err
	}
	return c, nil
}

func (s *Service) AddImage(ctx context.Context, id, path string) error {
	return s.store.AddProductImage(ctx, id, path)
}

func validate(p models.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Price <= 0:
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	}
	for k := range p.Characteristics {
		if !attrKey.MatchString(k) {
			return fmt.Errorf("%w: characteristic key %q", ErrInvalidProduct, k)
		}
	}
	return nil
}

// Slugify lowercases s and joins its letter/digit runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
