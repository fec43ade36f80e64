package address

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// POST /api/address/cities {query}
func (h *Handler) Cities(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "query is required")
		return
	}

	env, err := h.client.SearchCities(r.Context(), body.Query)
	if err != nil {
		log.Printf("Cities: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "address lookup failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, env)
}

// POST /api/address/warehouses {cityRef, query}
func (h *Handler) Warehouses(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		CityRef string `json:"cityRef"`
		Query   string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(body.CityRef) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "cityRef is required")
		return
	}

	env, err := h.client.Warehouses(r.Context(), body.CityRef, body.Query)
	if err != nil {
		log.Printf("Warehouses: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "address lookup failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, env)
}
