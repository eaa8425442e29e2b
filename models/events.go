package models

import "time"

// StockChangedEvent is published to the notification channel after order
// creation or cancellation adjusts stock. Delivery is fire-and-forget from
// this service's perspective.
type StockChangedEvent struct {
	Products  []StockLevel `json:"products"`
	Timestamp time.Time    `json:"timestamp"`
}

// OrderEvent is published best-effort to SNS on order lifecycle transitions.
type OrderEvent struct {
	Type      string    `json:"event_type"` // order_created, order_canceled, payment_succeeded
	OrderCode string    `json:"order_code"`
	UserID    string    `json:"user_id"`
	Payment   string    `json:"payment"`
	Total     float64   `json:"total"`
	SubTotal  float64   `json:"sub_total"`
	Timestamp time.Time `json:"timestamp"`
}
