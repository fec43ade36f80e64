package models

import "time"

type Product struct {
	ProductID       string            `json:"productId" bson:"productid"`
	Name            string            `json:"name" bson:"name"`
	Slug            string            `json:"slug" bson:"slug"`
	Description     string            `json:"description,omitempty" bson:"description,omitempty"`
	Price           float64           `json:"price" bson:"price"`
	Stock           int               `json:"stock" bson:"stock"`
	CategoryID      string            `json:"categoryId" bson:"categoryid"`
	Brand           string            `json:"brand,omitempty" bson:"brand,omitempty"`
	Characteristics map[string]string `json:"characteristics,omitempty" bson:"characteristics,omitempty"` // filterable attributes
	Images          []string          `json:"images,omitempty" bson:"images,omitempty"`
	Active          bool              `json:"active" bson:"active"`
	CreatedAt       time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt" bson:"updatedAt"`
}

type Category struct {
	CategoryID string `json:"categoryId" bson:"categoryid"`
	Name       string `json:"name" bson:"name"`
	Slug       string `json:"slug" bson:"slug"`
	ParentID   string `json:"parentId,omitempty" bson:"parentid,omitempty"`
}

// ProductPage is one page of a catalog listing.
type ProductPage struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// Admin is a back-office user allowed to manage the catalog and orders.
type Admin struct {
	Username     string    `json:"username" bson:"username"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Roles        []string  `json:"roles" bson:"roles"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}
