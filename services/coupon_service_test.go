package services_test

import (
	"context"
	"testing"
	"time"

	"order-service/models"
	"order-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newCouponService(coupons ...*models.Coupon) (*services.CouponService, *mockCouponRepo) {
	repo := newMockCouponRepo(coupons...)
	logger, _ := zap.NewDevelopment()
	return services.NewCouponService(repo, logger), repo
}

func TestValidate_PercentCoupon(t *testing.T) {
	coupon := activeCoupon(models.CouponTypePercent, 25, 1)
	svc, _ := newCouponService(coupon)

	v, svcErr := svc.Validate(context.Background(), coupon.ID.Hex(), "user-1", 200)
	require.Nil(t, svcErr)
	assert.Equal(t, 0.25, v.Fraction)
	assert.Equal(t, coupon.ID, v.Coupon.ID)
}

func TestValidate_FixedCouponScalesWithTotal(t *testing.T) {
	coupon := activeCoupon(models.CouponTypeFixed, 30, 1)
	svc, _ := newCouponService(coupon)

	v, svcErr := svc.Validate(context.Background(), coupon.ID.Hex(), "user-1", 120)
	require.Nil(t, svcErr)
	assert.InDelta(t, 0.25, v.Fraction, 1e-9)

	// Same coupon, smaller total, bigger fraction.
	v, svcErr = svc.Validate(context.Background(), coupon.ID.Hex(), "user-1", 60)
	require.Nil(t, svcErr)
	assert.InDelta(t, 0.5, v.Fraction, 1e-9)
}

func TestValidate_FixedCouponZeroTotalRejected(t *testing.T) {
	coupon := activeCoupon(models.CouponTypeFixed, 30, 1)
	svc, _ := newCouponService(coupon)

	_, svcErr := svc.Validate(context.Background(), coupon.ID.Hex(), "user-1", 0)
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}

func TestValidate_FixedCouponLargerThanTotalClamped(t *testing.T) {
	coupon := activeCoupon(models.CouponTypeFixed, 100, 1)
	svc, _ := newCouponService(coupon)

	v, svcErr := svc.Validate(context.Background(), coupon.ID.Hex(), "user-1", 40)
	require.Nil(t, svcErr)
	assert.Equal(t, 1.0, v.Fraction, "discount never exceeds the total")
}

func TestValidate_ExpiredCoupon(t *testing.T) {
	coupon := activeCoupon(models.CouponTypePercent, 10, 1)
	coupon.StartDate = time.Now().Add(-48 * time.Hour)
	coupon.EndDate = time.Now().Add(-24 * time.Hour)
	svc, _ := newCouponService(coupon)

	_, svcErr := svc.Validate(context.Background(), coupon.ID.Hex(), "user-1", 100)
	require.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
	assert.Equal(t, services.CodeCouponNotFound, svcErr.Code)
}

func TestValidate_NotYetStartedCoupon(t *testing.T) {
	coupon := activeCoupon(models.CouponTypePercent, 10, 1)
	coupon.StartDate = time.Now().Add(24 * time.Hour)
	coupon.EndDate = time.Now().Add(48 * time.Hour)
	svc, _ := newCouponService(coupon)

	_, svcErr := svc.Validate(context.Background(), coupon.ID.Hex(), "user-1", 100)
	require.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestValidate_PerUserLimitCountsDuplicates(t *testing.T) {
	coupon := activeCoupon(models.CouponTypePercent, 10, 2)
	coupon.UsedBy = []string{"user-1", "user-2", "user-1"}
	svc, _ := newCouponService(coupon)

	// user-1 already redeemed twice.
	_, svcErr := svc.Validate(context.Background(), coupon.ID.Hex(), "user-1", 100)
	require.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, services.CodeCouponLimitReached, svcErr.Code)

	// user-2 has one redemption left.
	v, svcErr := svc.Validate(context.Background(), coupon.ID.Hex(), "user-2", 100)
	require.Nil(t, svcErr)
	assert.Equal(t, 0.1, v.Fraction)
}

func TestValidate_UnknownCouponID(t *testing.T) {
	svc, _ := newCouponService()

	_, svcErr := svc.Validate(context.Background(), "garbage", "user-1", 100)
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)

	_, svcErr = svc.Validate(context.Background(), primitive.NewObjectID().Hex(), "user-1", 100)
	require.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestRemoveOneUsedBy_RemovesExactlyOneEntry(t *testing.T) {
	coupon := activeCoupon(models.CouponTypePercent, 10, 3)
	coupon.UsedBy = []string{"user-1", "user-1", "user-2"}
	repo := newMockCouponRepo(coupon)

	require.NoError(t, repo.RemoveOneUsedBy(context.Background(), coupon.ID, "user-1"))

	stored, err := repo.FindValidByID(context.Background(), coupon.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "user-2"}, stored.UsedBy)

	// Removing for a user with no entries is a no-op, not an error.
	require.NoError(t, repo.RemoveOneUsedBy(context.Background(), coupon.ID, "user-3"))
}
