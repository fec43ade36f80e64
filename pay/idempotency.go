package pay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

const (
	idempotencyTTL  = 24 * time.Hour
	maxReplayedBody = 1 << 20
)

type IdempotencyStore interface {
	// Reserve inserts rec, failing with models.ErrDuplicate if the key exists.
	Reserve(ctx context.Context, rec models.IdempotencyRecord) error
	Lookup(ctx context.Context, key string) (models.IdempotencyRecord, error)
	Complete(ctx context.Context, key string, status int, body []byte) error
	Release(ctx context.Context, key string) error
}

func requestHash(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter records the status and body written by a handler.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// Idempotent replays the stored response when a client retries a request with
// the same Idempotency-Key. Requests without the header pass through.
// A reused key with a different body gets 409, as does a retry that arrives
// while the first request is still running. Server errors are not stored.
func Idempotent(store IdempotencyStore) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next(w, r, ps)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxReplayedBody))
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			now := time.Now()
			rec := models.IdempotencyRecord{
				Key:         key,
				RequestHash: requestHash(r, body),
				CreatedAt:   now,
				ExpiresAt:   now.Add(idempotencyTTL),
			}

			err = store.Reserve(ctx, rec)
			if err == nil {
				cw := &captureWriter{ResponseWriter: w}
				next(cw, r, ps)
				if cw.status >= http.StatusInternalServerError || cw.status == 0 {
					if err := store.Release(context.Background(), key); err != nil {
						log.Printf("idempotency release %s: %v", key, err)
					}
					return
				}
				if err := store.Complete(context.Background(), key, cw.status, cw.buf.Bytes()); err != nil {
					log.Printf("idempotency complete %s: %v", key, err)
				}
				return
			}
			if !errors.Is(err, models.ErrDuplicate) {
				log.Printf("idempotency reserve %s: %v", key, err)
				utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
				return
			}

			existing, err := store.Lookup(ctx, key)
			if err != nil {
				log.Printf("idempotency lookup %s: %v", key, err)
				utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
				return
			}
			if existing.RequestHash != rec.RequestHash {
				utils.RespondWithError(w, http.StatusConflict, "idempotency-key conflict")
				return
			}
			if existing.Status == 0 {
				utils.RespondWithError(w, http.StatusConflict, "request in progress")
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(existing.Status)
			w.Write(existing.Body)
		}
	}
}
