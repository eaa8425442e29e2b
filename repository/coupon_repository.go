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
)

// CouponRepository reads coupons within their validity window and maintains
// the usedBy redemption list.
type CouponRepository interface {
	FindValidByID(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.Coupon, error)
	AppendUsedBy(ctx context.Context, id primitive.ObjectID, userID string) error
	RemoveOneUsedBy(ctx context.Context, id primitive.ObjectID, userID string) error
}

type MongoCouponRepository struct {
	collection *mongo.Collection
}

func NewMongoCouponRepository(db *mongo.Database) *MongoCouponRepository {
	return &MongoCouponRepository{collection: db.Collection("coupons")}
}

// FindValidByID loads a coupon only if now falls inside [startDate, endDate].
// An expired or missing coupon is indistinguishable to the caller.
func (r *MongoCouponRepository) FindValidByID(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.Coupon, error) {
	filter := bson.M{
		"_id":       id,
		"startDate": bson.M{"$lte": now},
		"endDate":   bson.M{"$gte": now},
	}
	var coupon models.Coupon
	if err := r.collection.FindOne(ctx, filter).Decode(&coupon); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	return &coupon, nil
}

// AppendUsedBy records one redemption by the user. Duplicates are expected:
// one entry per redemption.
func (r *MongoCouponRepository) AppendUsedBy(ctx context.Context, id primitive.ObjectID, userID string) error {
	update := bson.M{
		"$push": bson.M{"usedBy": userID},
		"$inc":  bson.M{"version": 1},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("append usedBy: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveOneUsedBy removes exactly one entry matching userID. Mongo's $pull
// would strip every matching entry and corrupt the per-user redemption count,
// so this is a read-modify-write guarded by the version counter, retried on
// concurrent interleaving.
func (r *MongoCouponRepository) RemoveOneUsedBy(ctx context.Context, id primitive.ObjectID, userID string) error {
	const maxRetries = 5

	for attempt := 0; attempt < maxRetries; attempt++ {
		var coupon models.Coupon
		if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&coupon); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return ErrNotFound
			}
			return fmt.Errorf("remove usedBy: %w", err)
		}

		idx := -1
		for i, u := range coupon.UsedBy {
			if u == userID {
				idx = i
				break
			}
		}
		if idx < 0 {
			// Nothing to remove; treat as applied.
			return nil
		}

		usedBy := make([]string, 0, len(coupon.UsedBy)-1)
		usedBy = append(usedBy, coupon.UsedBy[:idx]...)
		usedBy = append(usedBy, coupon.UsedBy[idx+1:]...)

		res, err := r.collection.UpdateOne(ctx,
			bson.M{"_id": id, "version": coupon.Version},
			bson.M{"$set": bson.M{"usedBy": usedBy}, "$inc": bson.M{"version": 1}},
		)
		if err != nil {
			return fmt.Errorf("remove usedBy: %w", err)
		}
		if res.ModifiedCount == 1 {
			return nil
		}
		// Stale version, another writer got there first; re-read and retry.
	}
	return ErrVersionConflict
}
