package pay

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"storefront/models"
	"storefront/orders"
	"storefront/reconcile"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"
)

type Quoter interface {
	Quote(ctx context.Context, req orders.Request) (orders.Quote, error)
}

type SessionStore interface {
	// CreateSession fails with models.ErrDuplicate when the order id already
	// has a session.
	CreateSession(ctx context.Context, s models.PaymentSession) error
}

type OrderReader interface {
	GetOrder(ctx context.Context, id string) (models.Order, error)
}

type Reconciler interface {
	Apply(ctx context.Context, cb models.PaymentCallback, payload string) (reconcile.Result, error)
}

type Handler struct {
	gw         *Gateway
	quotes     Quoter
	sessions   SessionStore
	orders     OrderReader
	reconciler Reconciler
	sessionTTL time.Duration
	now        func() time.Time
	newID      func() string
}

func NewHandler(gw *Gateway, quotes Quoter, sessions SessionStore, orders OrderReader, reconciler Reconciler, sessionTTL time.Duration) *Handler {
	return &Handler{
		gw:         gw,
		quotes:     quotes,
		sessions:   sessions,
		orders:     orders,
		reconciler: reconciler,
		sessionTTL: sessionTTL,
		now:        time.Now,
		newID:      utils.NewOrderID,
	}
}

func description(orderID string) string {
	return "Order " + orderID
}

// POST /api/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := orders.DecodeRequest(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	q, err := h.quotes.Quote(r.Context(), req)
	if err != nil {
		orders.WriteError(w, "Checkout", err)
		return
	}

	orderID := h.newID()
	co, err := h.gw.Initiate(q.Total, description(orderID), orderID)
	if err != nil {
		log.Printf("Checkout %s: %v", orderID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "could not start payment")
		return
	}

	now := h.now()
	sess := models.PaymentSession{
		OrderID:       orderID,
		Customer:      q.Customer,
		Delivery:      q.Delivery,
		PaymentMethod: q.PaymentMethod,
		Items:         q.Lines,
		Amount:        q.Total.InexactFloat64(),
		Status:        models.SessionOpen,
		CreatedAt:     now,
		ExpiresAt:     now.Add(h.sessionTTL),
	}
	if err := h.sessions.CreateSession(r.Context(), sess); err != nil {
		log.Printf("Checkout %s: %v", sess.OrderID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "could not start payment")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":     true,
		"orderId":     sess.OrderID,
		"data":        co.Data,
		"signature":   co.Signature,
		"checkoutUrl": co.CheckoutURL,
	})
}

// POST /api/orders/:id/pay
func (h *Handler) PayExisting(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	order, err := h.orders.GetOrder(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		log.Printf("PayExisting %s: %v", id, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if order.Status != models.OrderPendingPayment {
		utils.RespondWithError(w, http.StatusConflict, "order is already "+order.Status)
		return
	}

	co, err := h.gw.Initiate(decimal.NewFromFloat(order.TotalAmount), description(id), id)
	if err != nil {
		log.Printf("PayExisting %s: %v", id, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "could not start payment")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":     true,
		"orderId":     id,
		"data":        co.Data,
		"signature":   co.Signature,
		"checkoutUrl": co.CheckoutURL,
	})
}

// POST /api/payments/webhook (form fields data, signature)
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid form")
		return
	}
	data, signature := r.PostForm.Get("data"), r.PostForm.Get("signature")
	if data == "" || signature == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "data and signature are required")
		return
	}
	if !h.gw.Verify(data, signature) {
		log.Printf("Webhook: signature mismatch from %s", r.RemoteAddr)
		utils.RespondWithError(w, http.StatusBadRequest, "invalid signature")
		return
	}
	cb, err := Decode(data)
	if err != nil {
		log.Printf("Webhook: %v", err)
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := h.reconciler.Apply(r.Context(), cb, data)
	switch {
	case errors.Is(err, reconcile.ErrOrderNotFound):
		log.Printf("Webhook %s: %v", cb.OrderID, err)
		utils.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	case errors.Is(err, reconcile.ErrBusy):
		utils.RespondWithError(w, http.StatusServiceUnavailable, "retry later")
		return
	case err != nil:
		log.Printf("Webhook %s: %v", cb.OrderID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("Webhook %s: gateway %s, order %s (changed=%t)", cb.OrderID, cb.Status, res.Status, res.Changed)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}
