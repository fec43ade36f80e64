package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"storefront/models"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound = errors.New("no order or payment session for callback")
	ErrBusy          = errors.New("order is being reconciled")
)

// Gateway statuses that settle an order as paid.
const (
	GatewaySuccess = "success"
	GatewaySandbox = "sandbox"
)

// Transition is the status update applied to a pending order.
type Transition struct {
	Status        string
	PaymentStatus string
	PaymentID     string
	At            time.Time
}

type Store interface {
	GetOrder(ctx context.Context, id string) (models.Order, error)
	GetOrderItems(ctx context.Context, id string) ([]models.OrderItem, error)
	// TransitionOrder moves the order out of pending_payment. It reports
	// false when the order was no longer pending.
	TransitionOrder(ctx context.Context, id string, t Transition) (bool, error)
	GetSession(ctx context.Context, id string) (models.PaymentSession, error)
	// CreateFromSession writes the order and items and closes the session in
	// one transaction. It reports false when the order already exists.
	CreateFromSession(ctx context.Context, order models.Order, items []models.OrderItem, sessionStatus string) (bool, error)
	AddCartClearingEvent(ctx context.Context, ev models.CartClearingEvent) error
	RecordWebhook(ctx context.Context, ev models.WebhookEvent) error
}

type Mailer interface {
	EnqueueOrderConfirmation(ctx context.Context, order models.Order, items []models.OrderItem) error
}

type Publisher interface {
	Publish(ctx context.Context, ev models.OrderEvent) error
}

type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Result describes what a callback did to its order.
type Result struct {
	OrderID string
	Status  string
	Changed bool
}

type Reconciler struct {
	store  Store
	locks  Locker
	mailer Mailer
	events Publisher
	now    func() time.Time
}

func New(store Store, locks Locker, mailer Mailer, events Publisher) *Reconciler {
	return &Reconciler{store: store, locks: locks, mailer: mailer, events: events, now: time.Now}
}

// MapStatus maps a gateway status onto an order status.
func MapStatus(gateway string) string {
	switch gateway {
	case GatewaySuccess, GatewaySandbox:
		return models.OrderPaid
	default:
		return models.OrderFailed
	}
}

// Apply settles the order named by a verified callback. payload is the raw
// base64 data kept for the audit record.
func (r *Reconciler) Apply(ctx context.Context, cb models.PaymentCallback, payload string) (Result, error) {
	release, err := r.locks.Acquire(ctx, "order:"+cb.OrderID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	defer release()

	res, order, err := r.apply(ctx, cb)
	if err != nil {
		return Result{}, err
	}

	r.audit(ctx, cb, payload, res)
	if res.Changed {
		r.afterTransition(ctx, order)
	}
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, cb models.PaymentCallback) (Result, models.Order, error) {
	now := r.now()
	t := Transition{
		Status:        MapStatus(cb.Status),
		PaymentStatus: cb.Status,
		At:            now,
	}
	if cb.PaymentID != 0 {
		t.PaymentID = fmt.Sprint(cb.PaymentID)
	}

	order, err := r.store.GetOrder(ctx, cb.OrderID)
	switch {
	case err == nil:
		if t.Status == models.OrderPaid && !settles(cb, order.TotalAmount) {
			log.Printf("[reconcile] %s: paid %v %s, expected %.2f UAH", cb.OrderID, cb.Amount, cb.Currency, order.TotalAmount)
			t.Status = models.OrderFailed
		}
		changed, err := r.store.TransitionOrder(ctx, cb.OrderID, t)
		if err != nil {
			return Result{}, models.Order{}, fmt.Errorf("transition %s: %w", cb.OrderID, err)
		}
		if !changed {
			return Result{OrderID: cb.OrderID, Status: order.Status}, order, nil
		}
		applyTransition(&order, t)
		return Result{OrderID: cb.OrderID, Status: t.Status, Changed: true}, order, nil

	case errors.Is(err, models.ErrNotFound):
		return r.materialize(ctx, cb, t)

	default:
		return Result{}, models.Order{}, fmt.Errorf("load order %s: %w", cb.OrderID, err)
	}
}

// materialize creates the order from the checkout session snapshot.
func (r *Reconciler) materialize(ctx context.Context, cb models.PaymentCallback, t Transition) (Result, models.Order, error) {
	sess, err := r.store.GetSession(ctx, cb.OrderID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && sess.Status != models.SessionOpen) {
		return Result{}, models.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, cb.OrderID)
	}
	if err != nil {
		return Result{}, models.Order{}, fmt.Errorf("load session %s: %w", cb.OrderID, err)
	}

	if sess.Expired(t.At) {
		log.Printf("[reconcile] %s: callback %v after session expiry at %s", cb.OrderID, t.At.Sub(sess.ExpiresAt).Round(time.Second), sess.ExpiresAt.Format(time.RFC3339))
	}

	if t.Status == models.OrderPaid && !settles(cb, sess.Amount) {
		log.Printf("[reconcile] %s: paid %v %s, session expected %.2f", cb.OrderID, cb.Amount, cb.Currency, sess.Amount)
		t.Status = models.OrderFailed
	}

	order, items := OrderFromSession(sess, t)
	sessionStatus := models.SessionConsumed
	if t.Status == models.OrderFailed {
		sessionStatus = models.SessionFailed
	}
	created, err := r.store.CreateFromSession(ctx, order, items, sessionStatus)
	if err != nil {
		return Result{}, models.Order{}, fmt.Errorf("materialise %s: %w", cb.OrderID, err)
	}
	if !created {
		existing, err := r.store.GetOrder(ctx, cb.OrderID)
		if err != nil {
			return Result{}, models.Order{}, fmt.Errorf("reload %s: %w", cb.OrderID, err)
		}
		return Result{OrderID: cb.OrderID, Status: existing.Status}, existing, nil
	}
	return Result{OrderID: cb.OrderID, Status: order.Status, Changed: true}, order, nil
}

// OrderFromSession builds the order and items recorded by a checkout session.
func OrderFromSession(sess models.PaymentSession, t Transition) (models.Order, []models.OrderItem) {
	order := models.Order{
		OrderID:       sess.OrderID,
		Customer:      sess.Customer,
		Delivery:      sess.Delivery,
		PaymentMethod: sess.PaymentMethod,
		TotalAmount:   sess.Amount,
		Status:        models.OrderPendingPayment,
		CreatedAt:     sess.CreatedAt,
	}
	applyTransition(&order, t)

	items := make([]models.OrderItem, len(sess.Items))
	for i, it := range sess.Items {
		it.OrderID = sess.OrderID
		if it.CreatedAt.IsZero() {
			it.CreatedAt = sess.CreatedAt
		}
		items[i] = it
	}
	return order, items
}

func applyTransition(o *models.Order, t Transition) {
	o.Status = t.Status
	o.PaymentStatus = t.PaymentStatus
	o.PaymentID = t.PaymentID
	o.UpdatedAt = t.At
	if t.Status == models.OrderPaid {
		at := t.At
		o.PaidAt = &at
	}
}

// settles reports whether the callback amount covers the expected total.
func settles(cb models.PaymentCallback, expected float64) bool {
	if cb.Currency != "" && cb.Currency != "UAH" {
		return false
	}
	paid := decimal.NewFromFloat(cb.Amount).Round(2)
	return paid.Equal(decimal.NewFromFloat(expected).Round(2))
}

func (r *Reconciler) afterTransition(ctx context.Context, order models.Order) {
	if order.Status == models.OrderPaid {
		items, err := r.store.GetOrderItems(ctx, order.OrderID)
		if err != nil {
			log.Printf("[reconcile] %s: load items for email: %v", order.OrderID, err)
		} else if err := r.mailer.EnqueueOrderConfirmation(ctx, order, items); err != nil {
			log.Printf("[reconcile] %s: enqueue confirmation: %v", order.OrderID, err)
		}

		ev := models.CartClearingEvent{OrderID: order.OrderID, CreatedAt: r.now()}
		if err := r.store.AddCartClearingEvent(ctx, ev); err != nil && !errors.Is(err, models.ErrDuplicate) {
			log.Printf("[reconcile] %s: cart clearing event: %v", order.OrderID, err)
		}
	}

	ev := models.OrderEvent{OrderID: order.OrderID, Status: order.Status, At: r.now()}
	if err := r.events.Publish(ctx, ev); err != nil {
		log.Printf("[reconcile] %s: publish %s: %v", order.OrderID, order.Status, err)
	}
}

func (r *Reconciler) audit(ctx context.Context, cb models.PaymentCallback, payload string, res Result) {
	result := "ignored"
	if res.Changed {
		result = res.Status
	}
	ev := models.WebhookEvent{
		OrderID:   cb.OrderID,
		Status:    cb.Status,
		PaymentID: cb.PaymentID,
		Payload:   payload,
		Result:    result,
		CreatedAt: r.now(),
	}
	if err := r.store.RecordWebhook(ctx, ev); err != nil && !errors.Is(err, models.ErrDuplicate) {
		log.Printf("[reconcile] %s: record webhook: %v", cb.OrderID, err)
	}
}
