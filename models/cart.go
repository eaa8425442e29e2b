package models

import "time"

// CartItem is a live reference into the catalog, not a priced snapshot.
type CartItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// Cart is the per-user mutable working set consumed (read-only) by order
// creation. It is stored as a JSON blob in Redis keyed by user id.
type Cart struct {
	UserID    string     `json:"user_id"`
	Products  []CartItem `json:"products"`
	UpdatedAt time.Time  `json:"updated_at"`
}
