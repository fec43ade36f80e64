package db

import (
	"context"
	"fmt"
	"time"

	"storefront/models"
	"storefront/products"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductStore is the Mongo-backed catalog.
type ProductStore struct {
	db *DB
}

func NewProductStore(db *DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) ListProducts(ctx context.Context, q products.Query) ([]models.Product, int64, error) {
	filter := q.Filter()
	total, err := s.db.Products.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	opts := options.Find().
		SetSort(q.SortSpec()).
		SetSkip(q.Skip()).
		SetLimit(int64(q.Limit))
	cursor, err := s.db.Products.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Product
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	return out, total, nil
}

func (s *ProductStore) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := s.db.Products.FindOne(ctx, bson.M{"productid": id}).Decode(&p)
	return p, translate(err)
}

// ProductsByIDs returns the products among ids that exist, active or not.
func (s *ProductStore) ProductsByIDs(ctx context.Context, ids []string) (map[string]models.Product, error) {
	cursor, err := s.db.Products.Find(ctx, bson.M{"productid": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	var found []models.Product
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	out := make(map[string]models.Product, len(found))
	for _, p := range found {
		out[p.ProductID] = p
	}
	return out, nil
}

func (s *ProductStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	cursor, err := s.db.Categories.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Category
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return out, nil
}

func (s *ProductStore) CreateProduct(ctx context.Context, p models.Product) error {
	_, err := s.db.Products.InsertOne(ctx, p)
	return translate(err)
}

func (s *ProductStore) UpdateProduct(ctx context.Context, p models.Product) error {
	res, err := s.db.Products.ReplaceOne(ctx, bson.M{"productid": p.ProductID}, p)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *ProductStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.Products.DeleteOne(ctx, bson.M{"productid": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *ProductStore) CreateCategory(ctx context.Context, c models.Category) error {
	_, err := s.db.Categories.InsertOne(ctx, c)
	return translate(err)
}

func (s *ProductStore) AddProductImage(ctx context.Context, id, path string) error {
	res, err := s.db.Products.UpdateOne(ctx, bson.M{"productid": id}, bson.M{
		"$push": bson.M{"images": path},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
