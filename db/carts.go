package db

import (
	"context"

	"storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CartStore struct {
	db *DB
}

func NewCartStore(db *DB) *CartStore {
	return &CartStore{db: db}
}

func (s *CartStore) Load(ctx context.Context, token string) (models.Cart, error) {
	var c models.Cart
	err := s.db.Carts.FindOne(ctx, bson.M{"token": token}).Decode(&c)
	return c, translate(err)
}

func (s *CartStore) Save(ctx context.Context, c models.Cart) error {
	_, err := s.db.Carts.ReplaceOne(ctx, bson.M{"token": c.Token}, c, options.Replace().SetUpsert(true))
	return translate(err)
}

func (s *CartStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.Carts.DeleteOne(ctx, bson.M{"token": token})
	return err
}
