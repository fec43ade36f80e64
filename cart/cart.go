package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"storefront/models"

	"github.com/shopspring/decimal"
)

const (
	MaxQuantity = 99
	MaxLines    = 100
)

var (
	ErrInvalid        = errors.New("invalid cart change")
	ErrUnknownProduct = errors.New("unknown product")
)

// Store loads and saves whole carts. Load returns models.ErrNotFound for an
// unknown token.
type Store interface {
	Load(ctx context.Context, token string) (models.Cart, error)
	Save(ctx context.Context, c models.Cart) error
	Delete(ctx context.Context, token string) error
}

type ProductLookup interface {
	ProductsByIDs(ctx context.Context, ids []string) (map[string]models.Product, error)
}

// AddItem increments the line for productID, creating it when absent.
func AddItem(c *models.Cart, productID string, qty int, now time.Time) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalid)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = min(c.Items[i].Quantity+qty, MaxQuantity)
			return nil
		}
	}
	if len(c.Items) >= MaxLines {
		return fmt.Errorf("%w: cart is full", ErrInvalid)
	}
	c.Items = append(c.Items, models.CartItem{ProductID: productID, Quantity: min(qty, MaxQuantity), AddedAt: now})
	return nil
}

// SetQuantity sets the line quantity; zero removes the line.
func SetQuantity(c *models.Cart, productID string, qty int) error {
	if qty < 0 || qty > MaxQuantity {
		return fmt.Errorf("%w: quantity must be between 0 and %d", ErrInvalid, MaxQuantity)
	}
	i := slices.IndexFunc(c.Items, func(it models.CartItem) bool { return it.ProductID == productID })
	if i < 0 {
		return models.ErrNotFound
	}
	if qty == 0 {
		c.Items = slices.Delete(c.Items, i, i+1)
		return nil
	}
	c.Items[i].Quantity = qty
	return nil
}

// ToggleFavorite adds or removes productID and reports whether it is now a favorite.
func ToggleFavorite(c *models.Cart, productID string) bool {
	if i := slices.Index(c.Favorites, productID); i >= 0 {
		c.Favorites = slices.Delete(c.Favorites, i, i+1)
		return false
	}
	c.Favorites = append(c.Favorites, productID)
	return true
}

type Service struct {
	store    Store
	products ProductLookup
	now      func() time.Time
}

func NewService(store Store, products ProductLookup) *Service {
	return &Service{store: store, products: products, now: time.Now}
}

// Load returns the cart for token, or an empty one.
func (s *Service) Load(ctx context.Context, token string) (models.Cart, error) {
	c, err := s.store.Load(ctx, token)
	if errors.Is(err, models.ErrNotFound) {
		return models.Cart{Token: token}, nil
	}
	return c, err
}

// Update loads the cart, applies fn and saves the result.
func (s *Service) Update(ctx context.Context, token string, fn func(c *models.Cart) error) (models.Cart, error) {
	c, err := s.Load(ctx, token)
	if err != nil {
		return models.Cart{}, err
	}
	if err := fn(&c); err != nil {
		return models.Cart{}, err
	}
	c.UpdatedAt = s.now()
	if err := s.store.Save(ctx, c); err != nil {
		return models.Cart{}, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// Add puts qty of an active product into the cart.
func (s *Service) Add(ctx context.Context, token, productID string, qty int) (models.Cart, error) {
	if err := s.requireActive(ctx, productID); err != nil {
		return models.Cart{}, err
	}
	return s.Update(ctx, token, func(c *models.Cart) error {
		return AddItem(c, productID, qty, s.now())
	})
}

func (s *Service) ToggleFavorite(ctx context.Context, token, productID string) (models.Cart, bool, error) {
	var on bool
	c, err := s.Update(ctx, token, func(c *models.Cart) error {
		on = ToggleFavorite(c, productID)
		if on {
			return s.requireActive(ctx, productID)
		}
		return nil
	})
	return c, on, err
}

func (s *Service) Clear(ctx context.Context, token string) error {
	return s.store.Delete(ctx, token)
}

func (s *Service) requireActive(ctx context.Context, productID string) error {
	found, err := s.products.ProductsByIDs(ctx, []string{productID})
	if err != nil {
		return fmt.Errorf("resolve product: %w", err)
	}
	if p, ok := found[productID]; !ok || !p.Active {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	return nil
}

// View prices the cart against the current catalog. Lines whose product is
// gone or inactive are shown out of stock and left out of the total.
func (s *Service) View(ctx context.Context, c models.Cart) (models.CartView, error) {
	view := models.CartView{Token: c.Token, Lines: []models.CartLine{}}
	if len(c.Items) == 0 {
		return view, nil
	}

	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	found, err := s.products.ProductsByIDs(ctx, ids)
	if err != nil {
		return models.CartView{}, fmt.Errorf("resolve products: %w", err)
	}

	total := decimal.Zero
	for _, it := range c.Items {
		p, ok := found[it.ProductID]
		line := models.CartLine{ProductID: it.ProductID, Quantity: it.Quantity}
		if ok {
			line.Name = p.Name
			line.Price = p.Price
			line.InStock = p.Active && p.Stock >= it.Quantity
		}
		if ok && p.Active {
			sub := decimal.NewFromFloat(p.Price).Round(2).Mul(decimal.NewFromInt(int64(it.Quantity)))
			line.Subtotal = sub.InexactFloat64()
			total = total.Add(sub)
		}
		view.Lines = append(view.Lines, line)
	}
	view.Total = total.InexactFloat64()
	return view, nil
}

// Favorites returns the active favorite products in the order they were added.
func (s *Service) Favorites(ctx context.Context, c models.Cart) ([]models.Product, error) {
	out := []models.Product{}
	if len(c.Favorites) == 0 {
		return out, nil
	}
	found, err := s.products.ProductsByIDs(ctx, c.Favorites)
	if err != nil {
		return nil, fmt.Errorf("resolve favorites: %w", err)
	}
	for _, id := range c.Favorites {
		if p, ok := found[id]; ok && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}
