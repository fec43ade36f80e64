package orders

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// DecodeRequest reads a checkout body. Shared with the payment checkout.
func DecodeRequest(r *http.Request) (Request, error) {
	var req Request
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

// POST /api/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := DecodeRequest(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	order, _, err := h.svc.Create(r.Context(), req)
	if err != nil {
		WriteError(w, "CreateOrder", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":     true,
		"orderId":     order.OrderID,
		"totalAmount": order.TotalAmount,
		"status":      order.Status,
	})
}

// GET /api/orders/:id
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	order, err := h.svc.store.GetOrder(r.Context(), id)
	if err != nil {
		WriteError(w, "GetOrder", err)
		return
	}
	items, err := h.svc.store.GetOrderItems(r.Context(), id)
	if err != nil {
		WriteError(w, "GetOrder", err)
		return
	}
	if items == nil {
		items = []models.OrderItem{}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"order": order, "items": items})
}

// GET /api/orders/:id/cart-clear
func (h *Handler) CartClear(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	clear, err := h.svc.store.HasCartClearingEvent(r.Context(), id)
	if err != nil {
		WriteError(w, "CartClear", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"orderId": id, "clear": clear})
}

// GET /api/admin/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	opts := utils.ParseQueryOptions(r)
	f := models.OrderFilter{
		Status: r.URL.Query().Get("status"),
		Page:   opts.Page,
		Limit:  opts.Limit,
	}
	switch f.Status {
	case "", models.OrderPendingPayment, models.OrderPaid, models.OrderFailed:
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "unknown status")
		return
	}

	list, total, err := h.svc.store.ListOrders(r.Context(), f)
	if err != nil {
		WriteError(w, "ListOrders", err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"items": list,
		"total": total,
		"page":  f.Page,
		"limit": f.Limit,
	})
}

// WriteError maps order creation and lookup errors to responses.
func WriteError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnknownProduct), errors.Is(err, ErrTotalMismatch):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "order not found")
	default:
		log.Printf("%s: %v", op, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
	}
}
