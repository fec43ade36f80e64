package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"storefront/middleware"
	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin = "admin"
	tokenTTL  = 12 * time.Hour
)

type AdminStore interface {
	GetAdmin(ctx context.Context, username string) (models.Admin, error)
	UpsertAdmin(ctx context.Context, a models.Admin) error
}

// dummyHash keeps the response time of unknown usernames close to that of wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storefront"), bcrypt.DefaultCost)

func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// SeedAdmin creates or resets an admin account from a "user:pass" pair.
func SeedAdmin(ctx context.Context, store AdminStore, pair string) error {
	username, password, ok := strings.Cut(pair, ":")
	username = strings.TrimSpace(username)
	if !ok || username == "" {
		return fmt.Errorf("admin must be given as user:password")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return store.UpsertAdmin(ctx, models.Admin{
		Username:     username,
		PasswordHash: hash,
		Roles:        []string{RoleAdmin},
		CreatedAt:    time.Now(),
	})
}

type Handler struct {
	store AdminStore
}

func NewHandler(store AdminStore) *Handler {
	return &Handler{store: store}
}

// POST /api/admin/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	admin, err := h.store.GetAdmin(r.Context(), strings.TrimSpace(input.Username))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		log.Printf("Login: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	hash := []byte(admin.PasswordHash)
	if err != nil {
		hash = dummyHash
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(input.Password)) != nil || err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := middleware.IssueToken(admin.Username, admin.Username, admin.Roles, tokenTTL)
	if err != nil {
		log.Printf("Login: sign token: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"token":     token,
		"expiresIn": int(tokenTTL.Seconds()),
		"username":  admin.Username,
		"roles":     admin.Roles,
	})
}
