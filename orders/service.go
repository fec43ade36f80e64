package orders

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"storefront/models"
	"storefront/utils"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnknownProduct = errors.New("unknown product")
	ErrTotalMismatch  = errors.New("total mismatch")
)

// ProductLookup resolves catalog entries by id. Missing ids are simply absent
// from the result.
type ProductLookup interface {
	ProductsByIDs(ctx context.Context, ids []string) (map[string]models.Product, error)
}

// Store persists orders. CreateOrder must write the order and all of its items
// or nothing.
type Store interface {
	CreateOrder(ctx context.Context, order models.Order, items []models.OrderItem) error
	GetOrder(ctx context.Context, id string) (models.Order, error)
	GetOrderItems(ctx context.Context, id string) ([]models.OrderItem, error)
	ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error)
	HasCartClearingEvent(ctx context.Context, id string) (bool, error)
}

type LineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Request is the checkout submission.
type Request struct {
	Customer      models.Customer `json:"customer"`
	Delivery      models.Delivery `json:"delivery"`
	PaymentMethod string          `json:"paymentMethod"`
	Items         []LineRequest   `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

// Quote is a validated, priced request.
type Quote struct {
	Request
	Lines []models.OrderItem
	Total decimal.Decimal
}

// NewOrder materialises the quote as an order header plus snapshot items.
func (q Quote) NewOrder(orderID, status string, now time.Time) (models.Order, []models.OrderItem) {
	order := models.Order{
		OrderID:       orderID,
		Customer:      q.Customer,
		Delivery:      q.Delivery,
		PaymentMethod: q.PaymentMethod,
		TotalAmount:   q.Total.InexactFloat64(),
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	items := make([]models.OrderItem, len(q.Lines))
	for i, l := range q.Lines {
		l.OrderID = orderID
		l.CreatedAt = now
		items[i] = l
	}
	return order, items
}

type Service struct {
	products ProductLookup
	store    Store
	now      func() time.Time
	newID    func() string
}

func NewService(products ProductLookup, store Store) *Service {
	return &Service{products: products, store: store, now: time.Now, newID: utils.NewOrderID}
}

// Quote validates req, resolves every product and prices the lines from the
// catalog. Any unresolvable product rejects the whole request.
func (s *Service) Quote(ctx context.Context, req Request) (Quote, error) {
	req = normalize(req)
	if err := validate(req); err != nil {
		return Quote{}, err
	}

	ids := make([]string, len(req.Items))
	for i, it := range req.Items {
		ids[i] = it.ProductID
	}
	found, err := s.products.ProductsByIDs(ctx, ids)
	if err != nil {
		return Quote{}, fmt.Errorf("resolve products: %w", err)
	}

	var missing []string
	for _, id := range ids {
		if p, ok := found[id]; !ok || !p.Active {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownProduct, strings.Join(missing, ", "))
	}

	q := Quote{Request: req, Lines: make([]models.OrderItem, 0, len(req.Items))}
	for _, it := range req.Items {
		p := found[it.ProductID]
		price := decimal.NewFromFloat(p.Price).Round(2)
		sub := price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		q.Total = q.Total.Add(sub)
		q.Lines = append(q.Lines, models.OrderItem{
			ProductID: p.ProductID,
			Name:      p.Name,
			Price:     price.InexactFloat64(),
			Quantity:  it.Quantity,
			Subtotal:  sub.InexactFloat64(),
		})
	}

	if !q.Total.Equal(req.TotalAmount.Round(2)) {
		return Quote{}, fmt.Errorf("%w: declared %s, computed %s", ErrTotalMismatch, req.TotalAmount.StringFixed(2), q.Total.StringFixed(2))
	}
	return q, nil
}

// Create prices req and persists a pending order with its items.
func (s *Service) Create(ctx context.Context, req Request) (models.Order, []models.OrderItem, error) {
	q, err := s.Quote(ctx, req)
	if err != nil {
		return models.Order{}, nil, err
	}
	order, items := q.NewOrder(s.newID(), models.OrderPendingPayment, s.now())
	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		return models.Order{}, nil, fmt.Errorf("create order %s: %w", order.OrderID, err)
	}
	return order, items, nil
}

// normalize trims text fields and merges repeated product lines.
func normalize(req Request) Request {
	req.Customer.FirstName = strings.TrimSpace(req.Customer.FirstName)
	req.Customer.LastName = strings.TrimSpace(req.Customer.LastName)
	req.Customer.Phone = strings.TrimSpace(req.Customer.Phone)
	req.Customer.Email = strings.TrimSpace(req.Customer.Email)
	if addr, err := mail.ParseAddress(req.Customer.Email); err == nil {
		// keep only the bare address; it becomes the SMTP envelope recipient
		req.Customer.Email = addr.Address
	}
	req.Delivery.City = strings.TrimSpace(req.Delivery.City)
	req.Delivery.Warehouse = strings.TrimSpace(req.Delivery.Warehouse)
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentCard
	}

	merged := make([]LineRequest, 0, len(req.Items))
	pos := make(map[string]int, len(req.Items))
	for _, it := range req.Items {
		it.ProductID = strings.TrimSpace(it.ProductID)
		if i, ok := pos[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		pos[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	req.Items = merged
	return req
}

func validate(req Request) error {
	var problems []string
	if req.Customer.FirstName == "" {
		problems = append(problems, "customer.firstName is required")
	}
	if req.Customer.LastName == "" {
		problems = append(problems, "customer.lastName is required")
	}
	if req.Customer.Phone == "" {
		problems = append(problems, "customer.phone is required")
	}
	if req.Customer.Email != "" {
		if _, err := mail.ParseAddress(req.Customer.Email); err != nil {
			problems = append(problems, "customer.email is invalid")
		}
	}
	if req.Delivery.City == "" {
		problems = append(problems, "delivery.city is required")
	}
	if req.Delivery.Warehouse == "" {
		problems = append(problems, "delivery.warehouse is required")
	}
	if req.PaymentMethod != models.PaymentCard && req.PaymentMethod != models.PaymentCOD {
		problems = append(problems, "paymentMethod must be card or cod")
	}
	if len(req.Items) == 0 {
		problems = append(problems, "items must not be empty")
	}
	for _, it := range req.Items {
		if it.ProductID == "" {
			problems = append(problems, "items[].productId is required")
			break
		}
		if it.Quantity <= 0 {
			problems = append(problems, "items[].quantity must be positive")
			break
		}
	}
	if !req.TotalAmount.IsPositive() {
		problems = append(problems, "totalAmount is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
