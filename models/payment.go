package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusRefunded  = "refunded"
)

// Payment is the audit record of a checkout attempt, stored in Postgres.
// One row per initiated checkout; the webhook and refund paths update it.
type Payment struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderCode       string         `gorm:"type:varchar(16);not null;index" json:"order_code"`
	UserID          string         `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Amount          int64          `gorm:"not null" json:"amount"` // minor units
	Currency        string         `gorm:"type:varchar(8);not null" json:"currency"`
	Status          string         `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	StripeSessionID string         `gorm:"type:varchar(255);index" json:"stripe_session_id"`
	StripeIntentID  string         `gorm:"type:varchar(255);index" json:"stripe_intent_id"`
	SucceededAt     *time.Time     `json:"succeeded_at,omitempty"`
	RefundedAt      *time.Time     `json:"refunded_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
