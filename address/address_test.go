package address

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/config"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	data map[string][]byte
	ttl  time.Duration
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *mapCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	c.data[key], c.ttl = raw, ttl
	return err
}

type carrier struct {
	srv   *httptest.Server
	calls atomic.Int32

	mu   sync.Mutex
	last request
}

func (c *carrier) lastRequest() request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func newCarrier(t *testing.T, reply string) *carrier {
	c := &carrier{}
	c.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls.Add(1)
		var req request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		c.mu.Lock()
		c.last = req
		c.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(reply))
	}))
	t.Cleanup(c.srv.Close)
	return c
}

const okReply = `{"success":true,"data":[{"Ref":"abc","Description":"Kyiv"}],"errors":[],"warnings":[]}`

func TestSearchCitiesCaches(t *testing.T) {
	api := newCarrier(t, okReply)
	cache := newMapCache()
	c := NewClient(config.NovaPoshta{APIKey: "key", BaseURL: api.srv.URL}, cache)

	env, err := c.SearchCities(context.Background(), "  Kyiv ")
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.JSONEq(t, `[{"Ref":"abc","Description":"Kyiv"}]`, string(env.Data))
	assert.Equal(t, "key", api.lastRequest().APIKey)
	assert.Equal(t, "searchSettlements", api.lastRequest().CalledMethod)
	assert.Equal(t, "kyiv", api.lastRequest().MethodProperties["CityName"])

	_, err = c.SearchCities(context.Background(), "KYIV")
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.calls.Load())
	assert.Equal(t, 5*time.Minute, cache.ttl)
}

func TestFailuresAreNotCached(t *testing.T) {
	api := newCarrier(t, `{"success":false,"data":[],"errors":["API key expired"]}`)
	cache := newMapCache()
	c := NewClient(config.NovaPoshta{BaseURL: api.srv.URL}, cache)

	env, err := c.Warehouses(context.Background(), "abc", "")
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, []string{"API key expired"}, env.Errors)
	assert.Empty(t, cache.data)
}

func TestWarehousesFilter(t *testing.T) {
	api := newCarrier(t, okReply)
	c := NewClient(config.NovaPoshta{BaseURL: api.srv.URL}, nil)

	_, err := c.Warehouses(context.Background(), "abc", "Branch  5")
	require.NoError(t, err)
	assert.Equal(t, "getWarehouses", api.lastRequest().CalledMethod)
	assert.Equal(t, "abc", api.lastRequest().MethodProperties["CityRef"])
	assert.Equal(t, "branch 5", api.lastRequest().MethodProperties["FindByString"])

	_, err = c.Warehouses(context.Background(), "abc", "")
	require.NoError(t, err)
	assert.NotContains(t, api.lastRequest().MethodProperties, "FindByString")
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewHandler(NewClient(config.NovaPoshta{BaseURL: srv.URL}, nil))
	router := httprouter.New()
	router.POST("/api/address/cities", h.Cities)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/address/cities", strings.NewReader(`{"query":"Kyiv"}`)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandlers(t *testing.T) {
	api := newCarrier(t, okReply)
	h := NewHandler(NewClient(config.NovaPoshta{BaseURL: api.srv.URL}, nil))
	router := httprouter.New()
	router.POST("/api/address/cities", h.Cities)
	router.POST("/api/address/warehouses", h.Warehouses)

	tests := []struct {
		path, body string
		want       int
	}{
		{"/api/address/cities", `{"query":"Kyiv"}`, http.StatusOK},
		{"/api/address/cities", `{"query":" "}`, http.StatusBadRequest},
		{"/api/address/cities", `{`, http.StatusBadRequest},
		{"/api/address/warehouses", `{"cityRef":"abc"}`, http.StatusOK},
		{"/api/address/warehouses", `{"query":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))
		assert.Equal(t, tt.want, w.Code, tt.path+" "+tt.body)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/address/cities", strings.NewReader(`{"query":"Kyiv"}`)))
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
}
