package products

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

// maxImageBytes caps a single product image upload.
const maxImageBytes = 10 << 20

type Handler struct {
	svc       *Service
	uploadDir string
}

func NewHandler(svc *Service, uploadDir string) *Handler {
	return &Handler{svc: svc, uploadDir: uploadDir}
}

// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := h.svc.List(r.Context(), ParseQuery(r))
	if err != nil {
		log.Printf("ListProducts: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "could not load products")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

// GET /api/products/:id
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, err := h.svc.Get(r.Context(), ps.ByName("id"))
	if errors.Is(err, models.ErrNotFound) || (err == nil && !p.Active) {
		utils.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		log.Printf("GetProduct %s: %v", ps.ByName("id"), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "could not load product")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}

// GET /api/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		log.Printf("ListCategories: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "could not load categories")
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	utils.RespondWithJSON(w, http.StatusOK, cats)
}

// POST /api/admin/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	created, err := h.svc.Create(r.Context(), p)
	if err != nil {
		h.writeErr(w, "CreateProduct", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, created)
}

// PUT /api/admin/products/:id
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	updated, err := h.svc.Update(r.Context(), ps.ByName("id"), p)
	if err != nil {
		h.writeErr(w, "UpdateProduct", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// DELETE /api/admin/products/:id
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeErr(w, "DeleteProduct", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// POST /api/admin/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var c models.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	created, err := h.svc.CreateCategory(r.Context(), c)
	if err != nil {
		h.writeErr(w, "CreateCategory", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, created)
}

// POST /api/admin/products/:id/images (multipart field "image")
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		h.writeErr(w, "UploadImage", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, _, err := r.FormFile("image")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	img, err := SaveProductImage(file, h.uploadDir, id)
	if err != nil {
		log.Printf("UploadImage %s: %v", id, err)
		utils.RespondWithError(w, http.StatusBadRequest, "could not process image")
		return
	}
	if err := h.svc.AddImage(r.Context(), id, img.Original); err != nil {
		h.writeErr(w, "UploadImage", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, img)
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidProduct):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, models.ErrDuplicate):
		utils.RespondWithError(w, http.StatusConflict, "slug already in use")
	default:
		log.Printf("%s: %v", op, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
	}
}
