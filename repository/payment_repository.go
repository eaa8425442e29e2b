package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-service/models"

	"gorm.io/gorm"
)

// PaymentRepository stores one audit row per initiated checkout. The webhook
// and refund paths update the row; order state lives in Mongo and is never
// derived from these rows.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	MarkSucceeded(ctx context.Context, intentID string, at time.Time) error
	MarkRefunded(ctx context.Context, intentID string, at time.Time) error
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *GormPaymentRepository) MarkSucceeded(ctx context.Context, intentID string, at time.Time) error {
	return r.updateStatus(ctx, intentID, map[string]interface{}{
		"status":       models.PaymentStatusSucceeded,
		"succeeded_at": &at,
	})
}

func (r *GormPaymentRepository) MarkRefunded(ctx context.Context, intentID string, at time.Time) error {
	return r.updateStatus(ctx, intentID, map[string]interface{}{
		"status":      models.PaymentStatusRefunded,
		"refunded_at": &at,
	})
}

func (r *GormPaymentRepository) updateStatus(ctx context.Context, intentID string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("stripe_intent_id = ?", intentID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err is a missing-record error from either store.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
