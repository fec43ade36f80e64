package models

import "time"

// CartItem represents a single product line in a shopper's cart.
type CartItem struct {
	ProductID string    `json:"productId" bson:"productid"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	AddedAt   time.Time `json:"addedAt" bson:"addedAt"` // timestamp of when the item was first added
}

// Cart is the persisted cart and favorites state of one shopper, keyed by an
// opaque token the browser keeps.
type Cart struct {
	Token     string     `json:"token" bson:"token"`
	Items     []CartItem `json:"items" bson:"items"`
	Favorites []string   `json:"favorites" bson:"favorites"` // product ids
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// CartLine is a cart item joined with the current catalog entry, for display.
type CartLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
	InStock   bool    `json:"inStock"`
}

// CartView is the response shape of the cart endpoints.
type CartView struct {
	Token string     `json:"token"`
	Lines []CartLine `json:"lines"`
	Total float64    `json:"total"`
}
