package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DB holds the client and every collection the service uses.
type DB struct {
	Client *mongo.Client

	Products     *mongo.Collection
	Categories   *mongo.Collection
	Orders       *mongo.Collection
	OrderItems   *mongo.Collection
	Sessions     *mongo.Collection
	CartClearing *mongo.Collection
	Webhooks     *mongo.Collection
	Carts        *mongo.Collection
	Admins       *mongo.Collection
	Idempotency  *mongo.Collection
}

// Connect opens the client, pings the primary and binds the collections of
// database name. Transactions need a replica set.
func Connect(ctx context.Context, uri, name string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	d := client.Database(name)
	return &DB{
		Client:       client,
		Products:     d.Collection("products"),
		Categories:   d.Collection("categories"),
		Orders:       d.Collection("orders"),
		OrderItems:   d.Collection("order_items"),
		Sessions:     d.Collection("payment_sessions"),
		CartClearing: d.Collection("cart_clearing_events"),
		Webhooks:     d.Collection("webhook_events"),
		Carts:        d.Collection("carts"),
		Admins:       d.Collection("admins"),
		Idempotency:  d.Collection("idempotency_keys"),
	}, nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}

// sessionRetention keeps expired payment sessions around for late callbacks.
const sessionRetention = 24 * time.Hour

// EnsureIndexes creates every index the stores rely on. It is idempotent.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	unique := func(name string) *options.IndexOptions {
		return options.Index().SetUnique(true).SetName(name)
	}
	plan := []struct {
		coll *mongo.Collection
		idx  []mongo.IndexModel
	}{
		{db.Products, []mongo.IndexModel{
			{Keys: bson.D{{Key: "productid", Value: 1}}, Options: unique("unique_productid")},
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique("unique_slug")},
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "categoryid", Value: 1}, {Key: "price", Value: 1}}, Options: options.Index().SetName("listing")},
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("newest")},
		}},
		{db.Categories, []mongo.IndexModel{
			{Keys: bson.D{{Key: "categoryid", Value: 1}}, Options: unique("unique_categoryid")},
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique("unique_slug")},
		}},
		{db.Orders, []mongo.IndexModel{
			{Keys: bson.D{{Key: "orderid", Value: 1}}, Options: unique("unique_orderid")},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("status_created")},
		}},
		{db.OrderItems, []mongo.IndexModel{
			{Keys: bson.D{{Key: "orderid", Value: 1}, {Key: "productid", Value: 1}}, Options: unique("unique_order_product")},
		}},
		{db.Sessions, []mongo.IndexModel{
			{Keys: bson.D{{Key: "orderid", Value: 1}}, Options: unique("unique_orderid")},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(sessionRetention.Seconds())).SetName("ttl_expires_at")},
		}},
		{db.CartClearing, []mongo.IndexModel{
			{Keys: bson.D{{Key: "orderid", Value: 1}}, Options: unique("unique_orderid")},
		}},
		{db.Webhooks, []mongo.IndexModel{
			{Keys: bson.D{{Key: "orderid", Value: 1}, {Key: "status", Value: 1}, {Key: "paymentId", Value: 1}}, Options: unique("unique_delivery")},
		}},
		{db.Carts, []mongo.IndexModel{
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: unique("unique_token")},
			{Keys: bson.D{{Key: "updatedAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32((90 * 24 * time.Hour).Seconds())).SetName("ttl_updated_at")},
		}},
		{db.Admins, []mongo.IndexModel{
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique("unique_username")},
		}},
		{db.Idempotency, []mongo.IndexModel{
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: unique("unique_key")},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		}},
	}

	for _, p := range plan {
		names, err := p.coll.Indexes().CreateMany(ctx, p.idx)
		if err != nil {
			return fmt.Errorf("indexes on %s: %w", p.coll.Name(), err)
		}
		log.Printf("[db] %s: %v", p.coll.Name(), names)
	}
	return nil
}

// translate maps driver errors onto the model sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", models.ErrDuplicate, err)
	default:
		return err
	}
}

// inTransaction runs fn inside a multi-document transaction.
func (db *DB) inTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := db.Client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}
