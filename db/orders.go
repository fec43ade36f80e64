package db

import (
	"context"
	"errors"
	"fmt"

	"storefront/models"
	"storefront/reconcile"
	"storefront/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderStore persists orders, their items, payment sessions and the
// reconciliation records.
type OrderStore struct {
	db *DB
}

func NewOrderStore(db *DB) *OrderStore {
	return &OrderStore{db: db}
}

func itemDocs(items []models.OrderItem) []any {
	docs := make([]any, len(items))
	for i, it := range items {
		docs[i] = it
	}
	return docs
}

// CreateOrder writes the order and its items in one transaction.
func (s *OrderStore) CreateOrder(ctx context.Context, order models.Order, items []models.OrderItem) error {
	return translate(s.db.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.db.Orders.InsertOne(sc, order); err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		_, err := s.db.OrderItems.InsertMany(sc, itemDocs(items))
		return err
	}))
}

func (s *OrderStore) GetOrder(ctx context.Context, id string) (models.Order, error) {
	var o models.Order
	err := s.db.Orders.FindOne(ctx, bson.M{"orderid": id}).Decode(&o)
	return o, translate(err)
}

func (s *OrderStore) GetOrderItems(ctx context.Context, id string) ([]models.OrderItem, error) {
	cursor, err := s.db.OrderItems.Find(ctx, bson.M{"orderid": id}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.OrderItem
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return out, nil
}

func (s *OrderStore) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	total, err := s.db.Orders.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(utils.QueryOptions{Page: f.Page, Limit: f.Limit}.Skip()).
		SetLimit(int64(f.Limit))
	cursor, err := s.db.Orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Order
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}
	return out, total, nil
}

// TransitionOrder applies t only while the order is still pending payment.
func (s *OrderStore) TransitionOrder(ctx context.Context, id string, t reconcile.Transition) (bool, error) {
	set := bson.M{
		"status":        t.Status,
		"paymentStatus": t.PaymentStatus,
		"updatedAt":     t.At,
	}
	if t.PaymentID != "" {
		set["paymentId"] = t.PaymentID
	}
	if t.Status == models.OrderPaid {
		set["paidAt"] = t.At
	}
	res, err := s.db.Orders.UpdateOne(ctx,
		bson.M{"orderid": id, "status": models.OrderPendingPayment},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// CreateSession stores a checkout snapshot. The unique orderid index allows
// one session per order.
func (s *OrderStore) CreateSession(ctx context.Context, sess models.PaymentSession) error {
	_, err := s.db.Sessions.InsertOne(ctx, sess)
	return translate(err)
}

func (s *OrderStore) GetSession(ctx context.Context, id string) (models.PaymentSession, error) {
	var sess models.PaymentSession
	err := s.db.Sessions.FindOne(ctx, bson.M{"orderid": id}).Decode(&sess)
	return sess, translate(err)
}

// CreateFromSession materialises an order from its open session. A
// concurrent materialisation loses on the unique orderid index and reports
// false.
func (s *OrderStore) CreateFromSession(ctx context.Context, order models.Order, items []models.OrderItem, sessionStatus string) (bool, error) {
	err := s.db.inTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := s.db.Sessions.UpdateOne(sc,
			bson.M{"orderid": order.OrderID, "status": models.SessionOpen},
			bson.M{"$set": bson.M{"status": sessionStatus}},
		)
		if err != nil {
			return err
		}
		if res.ModifiedCount == 0 {
			return models.ErrDuplicate
		}
		if _, err := s.db.Orders.InsertOne(sc, order); err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		_, err = s.db.OrderItems.InsertMany(sc, itemDocs(items))
		return err
	})
	err = translate(err)
	if errors.Is(err, models.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *OrderStore) AddCartClearingEvent(ctx context.Context, ev models.CartClearingEvent) error {
	_, err := s.db.CartClearing.InsertOne(ctx, ev)
	return translate(err)
}

func (s *OrderStore) HasCartClearingEvent(ctx context.Context, id string) (bool, error) {
	n, err := s.db.CartClearing.CountDocuments(ctx, bson.M{"orderid": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *OrderStore) RecordWebhook(ctx context.Context, ev models.WebhookEvent) error {
	_, err := s.db.Webhooks.InsertOne(ctx, ev)
	return translate(err)
}
