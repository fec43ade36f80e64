package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store  *fakeStore
	mailer *fakeMailer
	events *fakePublisher
	locks  *memLocker
	r      *Reconciler
}

func newHarness() *harness {
	h := &harness{
		store:  newFakeStore(),
		mailer: &fakeMailer{},
		events: &fakePublisher{},
		locks:  &memLocker{},
	}
	h.r = New(h.store, h.locks, h.mailer, h.events)
	h.r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func pendingOrder(id string, total float64) models.Order {
	return models.Order{
		OrderID:     id,
		Customer:    models.Customer{FirstName: "Olena", Email: "olena@example.com"},
		TotalAmount: total,
		Status:      models.OrderPendingPayment,
	}
}

func TestMapStatus(t *testing.T) {
	tests := map[string]string{
		"success":     models.OrderPaid,
		"sandbox":     models.OrderPaid,
		"failure":     models.OrderFailed,
		"error":       models.OrderFailed,
		"reversed":    models.OrderFailed,
		"wait_secure": models.OrderFailed,
		"":            models.OrderFailed,
	}
	for in, want := range tests {
		assert.Equal(t, want, MapStatus(in), in)
	}
}

func TestApplySuccessOnExistingOrder(t *testing.T) {
	h := newHarness()
	h.store.orders["ORD-1"] = pendingOrder("ORD-1", 2000)

	res, err := h.r.Apply(context.Background(), models.PaymentCallback{
		OrderID: "ORD-1", Status: "success", Amount: 2000, Currency: "UAH", PaymentID: 77,
	}, "raw")
	require.NoError(t, err)

	assert.Equal(t, Result{OrderID: "ORD-1", Status: models.OrderPaid, Changed: true}, res)
	o := h.store.orders["ORD-1"]
	assert.Equal(t, models.OrderPaid, o.Status)
	assert.Equal(t, "success", o.PaymentStatus)
	assert.Equal(t, "77", o.PaymentID)
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, []string{"ORD-1"}, h.mailer.sent)
	assert.Len(t, h.store.clearing, 1)
	require.Len(t, h.events.events, 1)
	assert.Equal(t, models.OrderPaid, h.events.events[0].Status)
	assert.Len(t, h.store.webhooks, 1)
}

func TestApplyReplayIsNoop(t *testing.T) {
	h := newHarness()
	h.store.orders["ORD-1"] = pendingOrder("ORD-1", 2000)
	cb := models.PaymentCallback{OrderID: "ORD-1", Status: "success", Amount: 2000, PaymentID: 77}

	_, err := h.r.Apply(context.Background(), cb, "raw")
	require.NoError(t, err)
	res, err := h.r.Apply(context.Background(), cb, "raw")
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Equal(t, models.OrderPaid, res.Status)
	assert.Len(t, h.mailer.sent, 1)
	assert.Len(t, h.store.clearing, 1)
	assert.Len(t, h.events.events, 1)
	assert.Len(t, h.store.webhooks, 1)
}

func TestApplyFailureStatus(t *testing.T) {
	h := newHarness()
	h.store.orders["ORD-1"] = pendingOrder("ORD-1", 2000)

	res, err := h.r.Apply(context.Background(), models.PaymentCallback{OrderID: "ORD-1", Status: "failure"}, "raw")
	require.NoError(t, err)

	assert.Equal(t, models.OrderFailed, res.Status)
	assert.Nil(t, h.store.orders["ORD-1"].PaidAt)
	assert.Empty(t, h.mailer.sent)
	assert.Empty(t, h.store.clearing)
	require.Len(t, h.events.events, 1)
	assert.Equal(t, models.OrderFailed, h.events.events[0].Status)
}

func TestApplyNeverLeavesTerminalState(t *testing.T) {
	h := newHarness()
	o := pendingOrder("ORD-1", 2000)
	o.Status = models.OrderFailed
	h.store.orders["ORD-1"] = o

	res, err := h.r.Apply(context.Background(), models.PaymentCallback{OrderID: "ORD-1", Status: "success", Amount: 2000}, "raw")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, models.OrderFailed, h.store.orders["ORD-1"].Status)
	assert.Empty(t, h.events.events)
}

func TestApplyAmountMismatchFails(t *testing.T) {
	h := newHarness()
	h.store.orders["ORD-1"] = pendingOrder("ORD-1", 2000)

	res, err := h.r.Apply(context.Background(), models.PaymentCallback{OrderID: "ORD-1", Status: "success", Amount: 1}, "raw")
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, res.Status)
	assert.Empty(t, h.mailer.sent)
}

func TestApplyMaterialisesFromSession(t *testing.T) {
	h := newHarness()
	created := time.Date(2026, 3, 1, 11, 50, 0, 0, time.UTC)
	h.store.sessions["ORD-9"] = models.PaymentSession{
		OrderID: "ORD-9",
		Amount:  2000,
		Status:  models.SessionOpen,
		Items: []models.OrderItem{
			{ProductID: "p1", Name: "Kettle", Price: 600, Quantity: 2, Subtotal: 1200},
			{ProductID: "p2", Name: "Toaster", Price: 800, Quantity: 1, Subtotal: 800},
		},
		CreatedAt: created,
		ExpiresAt: created.Add(30 * time.Minute),
	}
	cb := models.PaymentCallback{OrderID: "ORD-9", Status: "sandbox", Amount: 2000}

	res, err := h.r.Apply(context.Background(), cb, "raw")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.OrderPaid, h.store.orders["ORD-9"].Status)
	assert.Equal(t, 2000.0, h.store.orders["ORD-9"].TotalAmount)
	require.Len(t, h.store.items["ORD-9"], 2)
	assert.Equal(t, "ORD-9", h.store.items["ORD-9"][0].OrderID)
	assert.Equal(t, models.SessionConsumed, h.store.sessions["ORD-9"].Status)

	_, err = h.r.Apply(context.Background(), cb, "raw")
	require.NoError(t, err)
	assert.Len(t, h.store.orders, 1)
	assert.Len(t, h.store.items["ORD-9"], 2)
	assert.Len(t, h.mailer.sent, 1)
}

func TestApplyLateCallbackStillMaterialises(t *testing.T) {
	h := newHarness()
	created := h.r.now().Add(-2 * time.Hour)
	sess := models.PaymentSession{
		OrderID:   "ORD-7",
		Amount:    600,
		Status:    models.SessionOpen,
		Items:     []models.OrderItem{{ProductID: "p1", Name: "Kettle", Price: 600, Quantity: 1, Subtotal: 600}},
		CreatedAt: created,
		ExpiresAt: created.Add(30 * time.Minute),
	}
	require.True(t, sess.Expired(h.r.now()))
	h.store.sessions["ORD-7"] = sess

	res, err := h.r.Apply(context.Background(), models.PaymentCallback{OrderID: "ORD-7", Status: "success", Amount: 600, Currency: "UAH"}, "raw")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.OrderPaid, h.store.orders["ORD-7"].Status)
	assert.Equal(t, models.SessionConsumed, h.store.sessions["ORD-7"].Status)
}

func TestApplyFailedSessionMaterialisesFailedOrder(t *testing.T) {
	h := newHarness()
	h.store.sessions["ORD-9"] = models.PaymentSession{OrderID: "ORD-9", Amount: 10, Status: models.SessionOpen}

	res, err := h.r.Apply(context.Background(), models.PaymentCallback{OrderID: "ORD-9", Status: "error"}, "raw")
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, res.Status)
	assert.Equal(t, models.SessionFailed, h.store.sessions["ORD-9"].Status)
}

func TestApplyUnknownOrder(t *testing.T) {
	h := newHarness()
	_, err := h.r.Apply(context.Background(), models.PaymentCallback{OrderID: "ORD-X", Status: "success"}, "raw")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	h.store.sessions["ORD-C"] = models.PaymentSession{OrderID: "ORD-C", Status: models.SessionConsumed}
	_, err = h.r.Apply(context.Background(), models.PaymentCallback{OrderID: "ORD-C", Status: "success"}, "raw")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Empty(t, h.store.webhooks)
}

func TestApplySideEffectFailuresAreSwallowed(t *testing.T) {
	h := newHarness()
	h.mailer.err = errors.New("queue down")
	h.store.orders["ORD-1"] = pendingOrder("ORD-1", 5)

	res, err := h.r.Apply(context.Background(), models.PaymentCallback{OrderID: "ORD-1", Status: "success", Amount: 5}, "raw")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, res.Status)
	assert.Len(t, h.store.clearing, 1)
}

func TestApplyStoreFailure(t *testing.T) {
	h := newHarness()
	h.store.getErr = errors.New("mongo down")
	_, err := h.r.Apply(context.Background(), models.PaymentCallback{OrderID: "ORD-1", Status: "success"}, "raw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrOrderNotFound)
}

func TestApplyBusyLock(t *testing.T) {
	h := newHarness()
	release, err := h.locks.Acquire(context.Background(), "order:ORD-1")
	require.NoError(t, err)
	defer release()

	_, err = h.r.Apply(context.Background(), models.PaymentCallback{OrderID: "ORD-1", Status: "success"}, "raw")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestApplyConcurrentDeliveries(t *testing.T) {
	h := newHarness()
	h.store.orders["ORD-1"] = pendingOrder("ORD-1", 100)
	cb := models.PaymentCallback{OrderID: "ORD-1", Status: "success", Amount: 100}

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.r.Apply(context.Background(), cb, "raw")
		}()
	}
	wg.Wait()

	assert.Len(t, h.mailer.sent, 1)
	assert.Len(t, h.store.clearing, 1)
}
