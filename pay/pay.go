package pay

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/config"
	"storefront/models"

	"github.com/shopspring/decimal"
)

const (
	apiVersion = 3
	currency   = "UAH"
)

var ErrUndecodable = errors.New("undecodable payment payload")

// Checkout is what the storefront posts to the hosted payment page.
type Checkout struct {
	Data        string `json:"data"`
	Signature   string `json:"signature"`
	CheckoutURL string `json:"checkoutUrl"`
}

type payload struct {
	Version     int         `json:"version"`
	PublicKey   string      `json:"public_key"`
	Action      string      `json:"action"`
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	Description string      `json:"description"`
	OrderID     string      `json:"order_id"`
	ResultURL   string      `json:"result_url,omitempty"`
	ServerURL   string      `json:"server_url,omitempty"`
	Sandbox     int         `json:"sandbox,omitempty"`
}

// Gateway signs outgoing checkout payloads and verifies callbacks with the
// merchant private key.
type Gateway struct {
	cfg config.LiqPay
}

func NewGateway(cfg config.LiqPay) *Gateway {
	return &Gateway{cfg: cfg}
}

// Initiate builds the signed checkout form for an order.
func (g *Gateway) Initiate(amount decimal.Decimal, description, orderID string) (Checkout, error) {
	if !amount.IsPositive() {
		return Checkout{}, fmt.Errorf("initiate %s: amount must be positive", orderID)
	}
	p := payload{
		Version:     apiVersion,
		PublicKey:   g.cfg.PublicKey,
		Action:      "pay",
		Amount:      json.Number(amount.StringFixed(2)),
		Currency:    currency,
		Description: description,
		OrderID:     orderID,
		ResultURL:   g.cfg.ResultURL,
		ServerURL:   g.cfg.ServerURL,
	}
	if g.cfg.Sandbox {
		p.Sandbox = 1
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Checkout{}, err
	}
	data := base64.StdEncoding.EncodeToString(raw)
	return Checkout{Data: data, Signature: g.Sign(data), CheckoutURL: g.cfg.CheckoutURL}, nil
}

// Sign returns base64(sha1(private_key + data + private_key)).
func (g *Gateway) Sign(data string) string {
	sum := sha1.Sum([]byte(g.cfg.PrivateKey + data + g.cfg.PrivateKey))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Verify reports whether signature matches data.
func (g *Gateway) Verify(data, signature string) bool {
	want := g.Sign(data)
	return subtle.ConstantTimeCompare([]byte(want), []byte(signature)) == 1
}

// Decode parses the base64 callback payload.
func Decode(data string) (models.PaymentCallback, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return models.PaymentCallback{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	var cb models.PaymentCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return models.PaymentCallback{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if cb.OrderID == "" || cb.Status == "" {
		return models.PaymentCallback{}, fmt.Errorf("%w: order_id and status are required", ErrUndecodable)
	}
	return cb, nil
}
