package models

import (
	"time"
)

// Payment session states.
const (
	SessionOpen     = "open"
	SessionConsumed = "consumed"
	SessionFailed   = "failed"
)

// PaymentSession is the pre-payment snapshot written before the shopper is
// redirected to the gateway. The webhook handler materialises an Order from
// it when no Order exists yet. At most one session exists per order id.
type PaymentSession struct {
	OrderID       string      `json:"orderId" bson:"orderid"`
	Customer      Customer    `json:"customer" bson:"customer"`
	Delivery      Delivery    `json:"delivery" bson:"delivery"`
	PaymentMethod string      `json:"paymentMethod" bson:"paymentMethod"`
	Items         []OrderItem `json:"items" bson:"items"`
	Amount        float64     `json:"amount" bson:"amount"`
	Status        string      `json:"status" bson:"status"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdAt"`
	ExpiresAt     time.Time   `json:"expiresAt" bson:"expiresAt"`
}

// Expired reports whether the session can no longer be consumed.
func (s PaymentSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PaymentCallback is the decoded gateway payload carried in a webhook.
type PaymentCallback struct {
	OrderID        string  `json:"order_id"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	PaymentID      int64   `json:"payment_id"`
	Action         string  `json:"action,omitempty"`
	ErrCode        string  `json:"err_code,omitempty"`
	ErrDescription string  `json:"err_description,omitempty"`
}

// WebhookEvent is the audit record of one verified webhook delivery.
type WebhookEvent struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	OrderID   string    `bson:"orderid" json:"orderId"`
	Status    string    `bson:"status" json:"status"`
	PaymentID int64     `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	Payload   string    `bson:"payload" json:"payload"` // base64 data as received
	Result    string    `bson:"result" json:"result"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// IdempotencyRecord remembers the response to a request carrying an
// Idempotency-Key header. Status is zero while the first request is in flight.
type IdempotencyRecord struct {
	Key         string    `bson:"key" json:"key"`
	RequestHash string    `bson:"requestHash" json:"requestHash"`
	Status      int       `bson:"status" json:"status"`
	Body        []byte    `bson:"body,omitempty" json:"-"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt   time.Time `bson:"expiresAt" json:"expiresAt"`
}
