package repository

import (
	"context"
	"errors"
	"fmt"

	"order-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductRepository is the stock-relevant slice of the catalog. AdjustStock
// is the only sanctioned way to mutate a stock counter.
type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) (*models.Product, error)
}

// MongoProductRepository implements ProductRepository against the products
// collection.
type MongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{collection: db.Collection("products")}
}

func (r *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &product, nil
}

// AdjustStock atomically applies delta to the stock counter and bumps the
// version. A negative delta carries the precondition stock >= -delta in the
// update filter itself, so the sufficiency check happens at apply time and
// two concurrent reservations cannot both pass a stale read.
func (r *MongoProductRepository) AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) (*models.Product, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["stock"] = bson.M{"$gte": -delta}
	}
	update := bson.M{"$inc": bson.M{"stock": delta, "version": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&product)
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	// No match: distinguish a missing product from a failed precondition.
	n, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if countErr != nil {
		return nil, fmt.Errorf("adjust stock: %w", countErr)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrInsufficientStock
}
