package orders

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/models"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store *fakeStore) *httprouter.Router {
	h := NewHandler(NewService(testCatalog(), store))
	r := httprouter.New()
	r.POST("/api/orders", h.CreateOrder)
	r.GET("/api/orders/:id", h.GetOrder)
	r.GET("/api/orders/:id/cart-clear", h.CartClear)
	r.GET("/api/admin/orders", h.ListOrders)
	return r
}

const orderBody = `{
	"customer": {"firstName": "Olena", "lastName": "Koval", "phone": "+380501112233"},
	"delivery": {"city": "Kyiv", "warehouse": "Branch 1"},
	"paymentMethod": "card",
	"items": [{"productId": "p1", "quantity": 2}, {"productId": "p2", "quantity": 1}],
	"totalAmount": 2000
}`

func TestCreateOrderHandler(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(orderBody)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		OrderID string `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/"+resp.OrderID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Order models.Order       `json:"order"`
		Items []models.OrderItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 2000.0, got.Order.TotalAmount)
	assert.Len(t, got.Items, 2)
}

func TestCreateOrderHandlerErrors(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store)

	tests := map[string]string{
		"malformed": `{"customer":`,
		"mismatch":  `{"customer":{"firstName":"a","lastName":"b","phone":"1"},"delivery":{"city":"c","warehouse":"w"},"items":[{"productId":"p1","quantity":1}],"totalAmount":1}`,
		"unknown":   `{"customer":{"firstName":"a","lastName":"b","phone":"1"},"delivery":{"city":"c","warehouse":"w"},"items":[{"productId":"zz","quantity":1}],"totalAmount":1}`,
	}
	for name, body := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
	assert.Empty(t, store.orders)

	store.createErr = errors.New("down")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(orderBody)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(newFakeStore()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/ORD-NOPE", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartClearHandler(t *testing.T) {
	store := newFakeStore()
	store.cleared["ORD-1"] = true
	router := newTestRouter(store)

	for id, want := range map[string]bool{"ORD-1": true, "ORD-2": false} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/"+id+"/cart-clear", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Clear bool `json:"clear"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, want, resp.Clear, id)
	}
}

func TestListOrdersHandler(t *testing.T) {
	store := newFakeStore()
	store.orders["ORD-1"] = models.Order{OrderID: "ORD-1", Status: models.OrderPaid}
	store.orders["ORD-2"] = models.Order{OrderID: "ORD-2", Status: models.OrderPendingPayment}
	router := newTestRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/orders?status=paid", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Items []models.Order `json:"items"`
		Total int64          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/orders?status=weird", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
