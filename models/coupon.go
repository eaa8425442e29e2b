package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CouponType represents how a coupon's discount value is interpreted.
type CouponType string

const (
	CouponTypePercent CouponType = "percent"
	CouponTypeFixed   CouponType = "fixed"
)

// Coupon is a discount instrument with a validity window and a per-user
// redemption limit. UsedBy holds one entry per redemption, so the same user
// id may appear multiple times; cancellation removes exactly one entry.
type Coupon struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type      CouponType         `bson:"type" json:"type"`
	Discount  float64            `bson:"discount" json:"discount"`
	Duration  int                `bson:"duration" json:"duration"`
	UsedBy    []string           `bson:"usedBy" json:"used_by"`
	StartDate time.Time          `bson:"startDate" json:"start_date"`
	EndDate   time.Time          `bson:"endDate" json:"end_date"`
	Version   int64              `bson:"version" json:"-"`
}

// RedemptionsBy counts how many times the given user has redeemed this coupon.
func (c *Coupon) RedemptionsBy(userID string) int {
	n := 0
	for _, id := range c.UsedBy {
		if id == userID {
			n++
		}
	}
	return n
}
