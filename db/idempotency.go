package db

import (
	"context"

	"storefront/models"

	"go.mongodb.org/mongo-driver/bson"
)

type IdempotencyStore struct {
	db *DB
}

func NewIdempotencyStore(db *DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, rec models.IdempotencyRecord) error {
	_, err := s.db.Idempotency.InsertOne(ctx, rec)
	return translate(err)
}

func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := s.db.Idempotency.FindOne(ctx, bson.M{"key": key}).Decode(&rec)
	return rec, translate(err)
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, status int, body []byte) error {
	_, err := s.db.Idempotency.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"status": status, "body": body}},
	)
	return err
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.db.Idempotency.DeleteOne(ctx, bson.M{"key": key})
	return err
}
