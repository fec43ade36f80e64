package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/models"
)

type fakeStore struct {
	mu       sync.Mutex
	orders   map[string]models.Order
	items    map[string][]models.OrderItem
	sessions map[string]models.PaymentSession
	clearing []models.CartClearingEvent
	webhooks map[string]models.WebhookEvent
	getErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   map[string]models.Order{},
		items:    map[string][]models.OrderItem{},
		sessions: map[string]models.PaymentSession{},
		webhooks: map[string]models.WebhookEvent{},
	}
}

func (s *fakeStore) GetOrder(ctx context.Context, id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return models.Order{}, s.getErr
	}
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

func (s *fakeStore) TransitionOrder(ctx context.Context, id string, t Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != models.OrderPendingPayment {
		return false, nil
	}
	applyTransition(&o, t)
	s.orders[id] = o
	return true, nil
}

func (s *fakeStore) GetSession(ctx context.Context, id string) (models.PaymentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.PaymentSession{}, models.ErrNotFound
	}
	return sess, nil
}

func (s *fakeStore) CreateFromSession(ctx context.Context, o models.Order, items []models.OrderItem, sessionStatus string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.OrderID]; ok {
		return false, nil
	}
	s.orders[o.OrderID] = o
	s.items[o.OrderID] = items
	sess := s.sessions[o.OrderID]
	sess.Status = sessionStatus
	s.sessions[o.OrderID] = sess
	return true, nil
}

func (s *fakeStore) AddCartClearingEvent(ctx context.Context, ev models.CartClearingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.clearing {
		if e.OrderID == ev.OrderID {
			return models.ErrDuplicate
		}
	}
	s.clearing = append(s.clearing, ev)
	return nil
}

func (s *fakeStore) RecordWebhook(ctx context.Context, ev models.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s|%s|%d", ev.OrderID, ev.Status, ev.PaymentID)
	if _, ok := s.webhooks[key]; ok {
		return models.ErrDuplicate
	}
	s.webhooks[key] = ev
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) EnqueueOrderConfirmation(ctx context.Context, o models.Order, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, o.OrderID)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (p *fakePublisher) Publish(ctx context.Context, ev models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, errors.New("held")
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}
