package address

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"storefront/config"
)

const (
	defaultLimit = 20
	maxBody      = 4 << 20
)

// Envelope is the carrier API response, passed through to the browser.
type Envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Errors   []string        `json:"errors"`
	Warnings []string        `json:"warnings,omitempty"`
}

type request struct {
	APIKey           string         `json:"apiKey"`
	ModelName        string         `json:"modelName"`
	CalledMethod     string         `json:"calledMethod"`
	MethodProperties map[string]any `json:"methodProperties"`
}

// Cache stores envelopes between identical lookups. It may be nil.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Client calls the Nova Poshta JSON API.
type Client struct {
	apiKey  string
	baseURL string
	ttl     time.Duration
	cache   Cache
	client  *http.Client
}

func NewClient(cfg config.NovaPoshta, cache Cache) *Client {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		ttl:     ttl,
		cache:   cache,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SearchCities finds settlements whose name starts with query.
func (c *Client) SearchCities(ctx context.Context, query string) (Envelope, error) {
	query = normalize(query)
	return c.call(ctx, "Address", "searchSettlements", map[string]any{
		"CityName": query,
		"Limit":    defaultLimit,
		"Page":     1,
	})
}

// Warehouses lists branches of the city, optionally filtered by query.
func (c *Client) Warehouses(ctx context.Context, cityRef, query string) (Envelope, error) {
	props := map[string]any{
		"CityRef": strings.TrimSpace(cityRef),
		"Limit":   50,
		"Page":    1,
	}
	if q := normalize(query); q != "" {
		props["FindByString"] = q
	}
	return c.call(ctx, "AddressGeneral", "getWarehouses", props)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func cacheKey(method string, props map[string]any) string {
	raw, _ := json.Marshal(props) // map keys marshal in sorted order
	return method + ":" + string(raw)
}

func (c *Client) call(ctx context.Context, model, method string, props map[string]any) (Envelope, error) {
	key := cacheKey(method, props)
	if c.cache != nil {
		var env Envelope
		hit, err := c.cache.Get(ctx, key, &env)
		if err != nil {
			log.Printf("[address] cache get %s: %v", method, err)
		}
		if hit {
			return env, nil
		}
	}

	body, err := json.Marshal(request{
		APIKey:           c.apiKey,
		ModelName:        model,
		CalledMethod:     method,
		MethodProperties: props,
	})
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return Envelope{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Envelope{}, fmt.Errorf("%s: read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Envelope{}, fmt.Errorf("%s: carrier API error (%d): %s", method, resp.StatusCode, respBody)
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return Envelope{}, fmt.Errorf("%s: decode response: %w", method, err)
	}
	if env.Errors == nil {
		env.Errors = []string{}
	}

	if env.Success && c.cache != nil {
		if err := c.cache.Set(ctx, key, env, c.ttl); err != nil {
			log.Printf("[address] cache set %s: %v", method, err)
		}
	}
	return env, nil
}
