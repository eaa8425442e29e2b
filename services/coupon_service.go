package services

import (
	"context"
	"errors"
	"time"

	"order-service/models"
	"order-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CouponValidation is the outcome of a successful validation: the coupon
// itself and the normalized discount fraction in [0,1].
type CouponValidation struct {
	Coupon   *models.Coupon
	Fraction float64
}

// CouponService checks temporal validity and per-user redemption limits.
// It never mutates usedBy; redemption is recorded by the orchestrator only
// after the order persists.
type CouponService struct {
	coupons repository.CouponRepository
	logger  *zap.Logger
}

func NewCouponService(coupons repository.CouponRepository, logger *zap.Logger) *CouponService {
	return &CouponService{coupons: coupons, logger: logger}
}

// Validate loads the coupon within its validity window, enforces the
// per-user redemption limit and computes the discount fraction against the
// order total. A fixed coupon's amount is re-expressed as a fraction of this
// order's own total.
func (s *CouponService) Validate(ctx context.Context, couponID, userID string, orderTotal float64) (*CouponValidation, *ServiceError) {
	id, err := primitive.ObjectIDFromHex(couponID)
	if err != nil {
		return nil, &ServiceError{StatusCode: 400, Code: CodeCouponNotFound, Message: "Invalid coupon id"}
	}

	coupon, err := s.coupons.FindValidByID(ctx, id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ServiceError{StatusCode: 404, Code: CodeCouponNotFound, Message: "Coupon not found or expired"}
		}
		s.logger.Error("coupon lookup failed", zap.String("coupon_id", couponID), zap.Error(err))
		return nil, unavailable(err)
	}

	if coupon.RedemptionsBy(userID) >= coupon.Duration {
		return nil, &ServiceError{StatusCode: 409, Code: CodeCouponLimitReached, Message: "Coupon redemption limit reached for this user"}
	}

	var fraction float64
	switch coupon.Type {
	case models.CouponTypePercent:
		fraction = coupon.Discount / 100
	case models.CouponTypeFixed:
		if orderTotal <= 0 {
			return nil, &ServiceError{StatusCode: 400, Code: CodeCouponNotFound, Message: "Fixed coupon cannot apply to a zero total"}
		}
		fraction = coupon.Discount / orderTotal
	default:
		return nil, &ServiceError{StatusCode: 400, Code: CodeCouponNotFound, Message: "Unknown coupon type"}
	}

	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	return &CouponValidation{Coupon: coupon, Fraction: fraction}, nil
}
