package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is ordered by progression; Canceled is terminal and is the
// only status reachable from any earlier one.
type OrderStatus int

const (
	OrderStatusPending OrderStatus = iota
	OrderStatusPlaced
	OrderStatusOnWay
	OrderStatusDelivered
	OrderStatusCanceled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "pending"
	case OrderStatusPlaced:
		return "placed"
	case OrderStatusOnWay:
		return "on_way"
	case OrderStatusDelivered:
		return "delivered"
	case OrderStatusCanceled:
		return "canceled"
	}
	return "unknown"
}

type PaymentType string

const (
	PaymentCash PaymentType = "cash"
	PaymentCard PaymentType = "card"
)

// InitialStatus derives the status a fresh order starts in: card orders wait
// for the gateway confirmation, cash orders are placed immediately.
func (p PaymentType) InitialStatus() OrderStatus {
	if p == PaymentCard {
		return OrderStatusPending
	}
	return OrderStatusPlaced
}

// OrderProduct is a priced snapshot of a cart line. It never mutates after
// the order is created.
type OrderProduct struct {
	ProductID  primitive.ObjectID `bson:"productId" json:"product_id"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	UnitPrice  float64            `bson:"unitPrice" json:"unit_price"`
	FinalPrice float64            `bson:"finalPrice" json:"final_price"`
}

// Order is the aggregate root. Only Status, PaidAt, IntentID and UpdatedBy
// mutate after creation; line items are immutable.
type Order struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrderCode    string              `bson:"orderId" json:"order_code"`
	CreatedBy    string              `bson:"createdBy" json:"created_by"`
	UpdatedBy    string              `bson:"updatedBy,omitempty" json:"updated_by,omitempty"`
	Address      string              `bson:"address" json:"address"`
	Phone        string              `bson:"phone" json:"phone"`
	Note         string              `bson:"note,omitempty" json:"note,omitempty"`
	CancelReason string              `bson:"cancelReason,omitempty" json:"cancel_reason,omitempty"`
	Status       OrderStatus         `bson:"status" json:"status"`
	Payment      PaymentType         `bson:"payment" json:"payment"`
	IntentID     string              `bson:"intentId,omitempty" json:"intent_id,omitempty"`
	Coupon       *primitive.ObjectID `bson:"coupon,omitempty" json:"coupon,omitempty"`
	Discount     float64             `bson:"discount" json:"discount"`
	Total        float64             `bson:"total" json:"total"`
	SubTotal     float64             `bson:"subTotal" json:"sub_total"`
	PaidAt       *time.Time          `bson:"paidAt,omitempty" json:"paid_at,omitempty"`
	Products     []OrderProduct      `bson:"products" json:"products"`
	Version      int64               `bson:"version" json:"-"`
	CreatedAt    time.Time           `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updated_at"`
}

// SetTotal sets the gross total and recomputes the net payable amount from
// the discount fraction. SubTotal must never be written directly.
func (o *Order) SetTotal(total float64) {
	o.Total = total
	o.SubTotal = total - total*o.Discount
}

// CreateOrderRequest is the payload for creating an order from the caller's cart.
type CreateOrderRequest struct {
	Address  string      `json:"address" binding:"required"`
	Phone    string      `json:"phone" binding:"required"`
	Note     string      `json:"note"`
	Payment  PaymentType `json:"payment" binding:"required,oneof=cash card"`
	CouponID string      `json:"coupon_id"`
}

// CancelOrderRequest carries the optional reason recorded on cancellation.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CheckoutResponse is returned to the client so it can complete the payment
// on its side.
type CheckoutResponse struct {
	SessionID    string `json:"session_id"`
	SessionURL   string `json:"session_url,omitempty"`
	ClientSecret string `json:"client_secret"`
}
