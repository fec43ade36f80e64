package db

import (
	"context"

	"storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AdminStore struct {
	db *DB
}

func NewAdminStore(db *DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) GetAdmin(ctx context.Context, username string) (models.Admin, error) {
	var a models.Admin
	err := s.db.Admins.FindOne(ctx, bson.M{"username": username}).Decode(&a)
	return a, translate(err)
}

// UpsertAdmin creates the account or resets its password and roles.
func (s *AdminStore) UpsertAdmin(ctx context.Context, a models.Admin) error {
	_, err := s.db.Admins.UpdateOne(ctx,
		bson.M{"username": a.Username},
		bson.M{
			"$set":         bson.M{"passwordHash": a.PasswordHash, "roles": a.Roles},
			"$setOnInsert": bson.M{"createdAt": a.CreatedAt},
		},
		options.Update().SetUpsert(true),
	)
	return translate(err)
}
