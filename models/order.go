package models

import "time"

// Order statuses. The only transitions are pending_payment -> paid and
// pending_payment -> failed.
const (
	OrderPendingPayment = "pending_payment"
	OrderPaid           = "paid"
	OrderFailed         = "failed"
)

// Payment methods accepted at checkout.
const (
	PaymentCard = "card"
	PaymentCOD  = "cod"
)

type Customer struct {
	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`
	Phone     string `json:"phone" bson:"phone"`
	Email     string `json:"email,omitempty" bson:"email,omitempty"`
}

// Delivery is the carrier destination picked through address lookup.
type Delivery struct {
	City         string `json:"city" bson:"city"`
	CityRef      string `json:"cityRef,omitempty" bson:"cityRef,omitempty"`
	Warehouse    string `json:"warehouse" bson:"warehouse"`
	WarehouseRef string `json:"warehouseRef,omitempty" bson:"warehouseRef,omitempty"`
}

// Order represents a customer's purchase record.
type Order struct {
	OrderID       string     `json:"orderId" bson:"orderid"`
	Customer      Customer   `json:"customer" bson:"customer"`
	Delivery      Delivery   `json:"delivery" bson:"delivery"`
	PaymentMethod string     `json:"paymentMethod" bson:"paymentMethod"`
	TotalAmount   float64    `json:"totalAmount" bson:"totalAmount"`
	Status        string     `json:"status" bson:"status"`
	PaymentStatus string     `json:"paymentStatus,omitempty" bson:"paymentStatus,omitempty"` // raw gateway status
	PaymentID     string     `json:"paymentId,omitempty" bson:"paymentId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt" bson:"updatedAt"`
	PaidAt        *time.Time `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
}

// OrderItem is one line of an Order. Name and Price are snapshots taken at
// creation time and never rewritten.
type OrderItem struct {
	OrderID   string    `json:"orderId" bson:"orderid"`
	ProductID string    `json:"productId" bson:"productid"`
	Name      string    `json:"name" bson:"name"`
	Price     float64   `json:"price" bson:"price"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	Subtotal  float64   `json:"subtotal" bson:"subtotal"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// CartClearingEvent marks that the browser may empty its cart for an order.
// Written once, never updated.
type CartClearingEvent struct {
	OrderID   string    `json:"orderId" bson:"orderid"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// OrderEvent is published whenever an order changes status.
type OrderEvent struct {
	OrderID string    `json:"orderId"`
	Status  string    `json:"status"`
	At      time.Time `json:"at"`
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status string
	Page   int
	Limit  int
}
