package cart

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"storefront/models"
	"storefront/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

const TokenHeader = "X-Cart-Token"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// token reads the cart token. With issue set a missing token is generated.
func token(w http.ResponseWriter, r *http.Request, issue bool) (string, bool) {
	t := r.Header.Get(TokenHeader)
	if t == "" {
		if issue {
			t = utils.GetUUID()
			w.Header().Set(TokenHeader, t)
		}
		return t, true
	}
	if _, err := uuid.Parse(t); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid cart token")
		return "", false
	}
	w.Header().Set(TokenHeader, t)
	return t, true
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, c models.Cart, status int) {
	view, err := h.svc.View(r.Context(), c)
	if err != nil {
		log.Printf("cart view: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "could not load cart")
		return
	}
	utils.RespondWithJSON(w, status, view)
}

func writeErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalid):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnknownProduct), errors.Is(err, models.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "product not found")
	default:
		log.Printf("%s: %v", op, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
	}
}

// GET /api/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	t, ok := token(w, r, false)
	if !ok {
		return
	}
	if t == "" {
		h.respondCart(w, r, models.Cart{}, http.StatusOK)
		return
	}
	c, err := h.svc.Load(r.Context(), t)
	if err != nil {
		writeErr(w, "GetCart", err)
		return
	}
	h.respondCart(w, r, c, http.StatusOK)
}

// POST /api/cart/items {productId, quantity}
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProductID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	t, ok := token(w, r, true)
	if !ok {
		return
	}
	c, err := h.svc.Add(r.Context(), t, body.ProductID, body.Quantity)
	if err != nil {
		writeErr(w, "AddItem", err)
		return
	}
	h.respondCart(w, r, c, http.StatusCreated)
}

// PUT /api/cart/items/:productId {quantity}
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Quantity == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	t, ok := token(w, r, true)
	if !ok {
		return
	}
	id := ps.ByName("productId")
	c, err := h.svc.Update(r.Context(), t, func(c *models.Cart) error {
		return SetQuantity(c, id, *body.Quantity)
	})
	if err != nil {
		writeErr(w, "SetQuantity", err)
		return
	}
	h.respondCart(w, r, c, http.StatusOK)
}

// DELETE /api/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	t, ok := token(w, r, false)
	if !ok {
		return
	}
	if t != "" {
		if err := h.svc.Clear(r.Context(), t); err != nil {
			writeErr(w, "ClearCart", err)
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// GET /api/favorites
func (h *Handler) GetFavorites(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	t, ok := token(w, r, false)
	if !ok {
		return
	}
	var c models.Cart
	if t != "" {
		var err error
		if c, err = h.svc.Load(r.Context(), t); err != nil {
			writeErr(w, "GetFavorites", err)
			return
		}
	}
	favs, err := h.svc.Favorites(r.Context(), c)
	if err != nil {
		writeErr(w, "GetFavorites", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, favs)
}

// POST /api/favorites/:productId
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	t, ok := token(w, r, true)
	if !ok {
		return
	}
	id := ps.ByName("productId")
	_, on, err := h.svc.ToggleFavorite(r.Context(), t, id)
	if err != nil {
		writeErr(w, "ToggleFavorite", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"productId": id, "favorite": on})
}
