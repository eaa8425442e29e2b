package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderRepository persists orders and performs the status-preconditioned
// updates the webhook and cancellation paths rely on. Every mutating write
// bumps the version counter.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByIDAndUser(ctx context.Context, id primitive.ObjectID, userID string) (*models.Order, error)
	FindByUser(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error)
	FindPendingCardOrder(ctx context.Context, id primitive.ObjectID, userID string) (*models.Order, error)
	SetIntentID(ctx context.Context, id primitive.ObjectID, intentID string) error
	MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time) (*models.Order, error)
	Cancel(ctx context.Context, id primitive.ObjectID, actor, reason string, allowDelivered bool) (*models.Order, error)
}

type MongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{collection: db.Collection("orders")}
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	res, err := r.collection.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = oid
	}
	return nil
}

func (r *MongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoOrderRepository) FindByIDAndUser(ctx context.Context, id primitive.ObjectID, userID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id, "createdBy": userID})
}

func (r *MongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	if err := r.collection.FindOne(ctx, filter).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

func (r *MongoOrderRepository) FindByUser(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	filter := bson.M{"createdBy": userID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}
	return orders, total, nil
}

// FindPendingCardOrder scopes the read to the owner and the exact state
// checkout initiation requires.
func (r *MongoOrderRepository) FindPendingCardOrder(ctx context.Context, id primitive.ObjectID, userID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{
		"_id":       id,
		"createdBy": userID,
		"payment":   models.PaymentCard,
		"status":    models.OrderStatusPending,
	})
}

func (r *MongoOrderRepository) SetIntentID(ctx context.Context, id primitive.ObjectID, intentID string) error {
	update := bson.M{
		"$set": bson.M{"intentId": intentID, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("set intent id: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPaid transitions Pending card orders to Placed in one conditional
// update. A duplicate or late webhook finds no matching document and gets
// ErrNotFound, which makes the handler a no-op for redelivery.
func (r *MongoOrderRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time) (*models.Order, error) {
	filter := bson.M{
		"_id":     id,
		"status":  models.OrderStatusPending,
		"payment": models.PaymentCard,
	}
	update := bson.M{
		"$set": bson.M{
			"status":    models.OrderStatusPlaced,
			"paidAt":    paidAt,
			"updatedAt": time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	return &order, nil
}

// Cancel transitions any non-terminal order to Canceled in one conditional
// update. Delivered orders are excluded unless allowDelivered is set. The
// returned order carries the line items and coupon reference the caller
// compensates against.
func (r *MongoOrderRepository) Cancel(ctx context.Context, id primitive.ObjectID, actor, reason string, allowDelivered bool) (*models.Order, error) {
	maxStatus := models.OrderStatusDelivered
	if allowDelivered {
		maxStatus = models.OrderStatusCanceled
	}
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$lt": maxStatus},
	}
	set := bson.M{
		"status":    models.OrderStatusCanceled,
		"updatedBy": actor,
		"updatedAt": time.Now().UTC(),
	}
	if reason != "" {
		set["cancelReason"] = reason
	}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	return &order, nil
}
