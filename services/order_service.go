package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"order-service/metrics"
	"order-service/models"
	awspkg "order-service/pkg/aws"
	"order-service/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// StockPublisher delivers stock-change notifications to the external
// broadcaster. Fire-and-forget: a publish failure never fails the order.
type StockPublisher interface {
	PublishStockChange(ctx context.Context, levels []models.StockLevel) error
}

// UnreservedItem is a line whose stock reservation failed after the order
// was already persisted.
type UnreservedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

// CreateOrderResult carries the persisted order plus any lines left in a
// partial inventory inconsistency for asynchronous reconciliation.
type CreateOrderResult struct {
	Order      *models.Order
	Unreserved []UnreservedItem
}

// CancelOrderResult carries the canceled order plus compensation failures,
// which are reported but never block the cancellation itself.
type CancelOrderResult struct {
	Order    *models.Order
	Warnings []string
}

type OrderListResult struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderService is the order state machine: it converts carts into orders,
// drives stock and coupon side effects, and compensates them on
// cancellation. Order persistence, coupon-usage append and stock
// reservation are three sequential, independently-committing steps; there
// is no cross-entity transaction.
type OrderService struct {
	orders               repository.OrderRepository
	products             repository.ProductRepository
	coupons              repository.CouponRepository
	carts                repository.CartRepository
	payments             repository.PaymentRepository
	couponSvc            *CouponService
	inventory            *InventoryService
	gateway              PaymentGateway
	stockPub             StockPublisher
	sns                  awspkg.SNSPublisher
	snsTopicArn          string
	allowCancelDelivered bool
	logger               *zap.Logger
}

type OrderServiceDeps struct {
	Orders               repository.OrderRepository
	Products             repository.ProductRepository
	Coupons              repository.CouponRepository
	Carts                repository.CartRepository
	Payments             repository.PaymentRepository
	CouponService        *CouponService
	Inventory            *InventoryService
	Gateway              PaymentGateway
	StockPublisher       StockPublisher
	SNS                  awspkg.SNSPublisher
	SNSTopicArn          string
	AllowCancelDelivered bool
	Logger               *zap.Logger
}

func NewOrderService(deps OrderServiceDeps) *OrderService {
	return &OrderService{
		orders:               deps.Orders,
		products:             deps.Products,
		coupons:              deps.Coupons,
		carts:                deps.Carts,
		payments:             deps.Payments,
		couponSvc:            deps.CouponService,
		inventory:            deps.Inventory,
		gateway:              deps.Gateway,
		stockPub:             deps.StockPublisher,
		sns:                  deps.SNS,
		snsTopicArn:          deps.SNSTopicArn,
		allowCancelDelivered: deps.AllowCancelDelivered,
		logger:               deps.Logger,
	}
}

// NewOrderCode derives the short public order reference from a random UUID.
func NewOrderCode() string {
	return uuid.NewString()[:8]
}

// CreateOrder converts the caller's cart into a persisted order.
//
// Validation (empty cart, product availability, coupon) happens before any
// write, so a failed create leaves no side effects behind. Once the order
// record exists, coupon redemption and stock reservation are applied; a
// reservation that fails at that point is surfaced in the result instead of
// being rolled back.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req *models.CreateOrderRequest) (*CreateOrderResult, *ServiceError) {
	start := time.Now()

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		s.logger.Error("cart lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil, unavailable(err)
	}
	if cart == nil || len(cart.Products) == 0 {
		return nil, &ServiceError{StatusCode: 404, Code: CodeEmptyCart, Message: "Cart is empty"}
	}

	// Price every line against the current catalog. Stock is re-validated
	// here at order time, not cart time, and again atomically at reserve time.
	lines := make([]models.OrderProduct, 0, len(cart.Products))
	var total float64
	for _, item := range cart.Products {
		pid, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return nil, &ServiceError{StatusCode: 400, Code: CodeProductUnavailable, Message: fmt.Sprintf("Invalid product id %q", item.ProductID)}
		}
		product, err := s.products.FindByID(ctx, pid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, productUnavailable(item.ProductID)
			}
			return nil, unavailable(err)
		}
		if product.Stock < item.Quantity {
			return nil, productUnavailable(item.ProductID)
		}

		finalPrice := product.SalePrice * float64(item.Quantity)
		lines = append(lines, models.OrderProduct{
			ProductID:  pid,
			Quantity:   item.Quantity,
			UnitPrice:  product.SalePrice,
			FinalPrice: finalPrice,
		})
		total += finalPrice
	}

	var coupon *models.Coupon
	var discount float64
	if req.CouponID != "" {
		validation, svcErr := s.couponSvc.Validate(ctx, req.CouponID, userID, total)
		if svcErr != nil {
			return nil, svcErr
		}
		coupon = validation.Coupon
		discount = validation.Fraction
	}

	order := &models.Order{
		OrderCode: NewOrderCode(),
		CreatedBy: userID,
		Address:   req.Address,
		Phone:     req.Phone,
		Note:      req.Note,
		Payment:   req.Payment,
		Status:    req.Payment.InitialStatus(),
		Discount:  discount,
		Products:  lines,
	}
	if coupon != nil {
		order.Coupon = &coupon.ID
	}
	order.SetTotal(total)

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("order persist failed", zap.String("user_id", userID), zap.Error(err))
		return nil, unavailable(err)
	}

	// Side effects only once the order record exists.
	if coupon != nil {
		if err := s.coupons.AppendUsedBy(ctx, coupon.ID, userID); err != nil {
			s.logger.Error("coupon redemption record failed",
				zap.String("order_code", order.OrderCode),
				zap.String("coupon_id", coupon.ID.Hex()),
				zap.Error(err),
			)
		} else {
			metrics.CouponRedemptions.Inc()
		}
	}

	levels := make([]models.StockLevel, 0, len(lines))
	var unreserved []UnreservedItem
	for _, line := range lines {
		product, err := s.inventory.Reserve(ctx, line.ProductID, line.Quantity)
		if err != nil {
			metrics.ReservationShortfalls.Inc()
			s.logger.Error("stock reservation failed after order persist",
				zap.String("order_code", order.OrderCode),
				zap.String("product_id", line.ProductID.Hex()),
				zap.Int("quantity", line.Quantity),
				zap.Error(err),
			)
			unreserved = append(unreserved, UnreservedItem{
				ProductID: line.ProductID.Hex(),
				Quantity:  line.Quantity,
				Reason:    reserveFailureReason(err),
			})
			continue
		}
		levels = append(levels, models.StockLevel{ProductID: product.ID.Hex(), Stock: product.Stock})
	}

	s.publishStockChange(ctx, order.OrderCode, levels)
	s.publishOrderEvent(ctx, "order_created", order)

	metrics.OrdersCreated.WithLabelValues(string(order.Payment)).Inc()
	metrics.OrderCreateDuration.Observe(time.Since(start).Seconds())

	// The cart intentionally survives order creation.
	return &CreateOrderResult{Order: order, Unreserved: unreserved}, nil
}

// CancelOrder moves any non-terminal order to Canceled and compensates its
// side effects: stock release per line, one usedBy entry removed, and a
// refund when the payment was actually captured. The compensations are
// attempted independently; failures are collected as warnings.
func (s *OrderService) CancelOrder(ctx context.Context, actorID, orderID, reason string) (*CancelOrderResult, *ServiceError) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, &ServiceError{StatusCode: 400, Code: CodeInvalidRequest, Message: "Invalid order id"}
	}

	order, err := s.orders.Cancel(ctx, id, actorID, reason, s.allowCancelDelivered)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			existing, ferr := s.orders.FindByID(ctx, id)
			if ferr != nil {
				if errors.Is(ferr, repository.ErrNotFound) {
					return nil, &ServiceError{StatusCode: 404, Code: CodeOrderNotFound, Message: "Order not found"}
				}
				return nil, unavailable(ferr)
			}
			return nil, &ServiceError{
				StatusCode: 409,
				Code:       CodeOrderStateConflict,
				Message:    fmt.Sprintf("Order cannot be canceled in status %s", existing.Status),
			}
		}
		return nil, unavailable(err)
	}

	var warnings []string
	levels := make([]models.StockLevel, 0, len(order.Products))
	for _, line := range order.Products {
		product, err := s.inventory.Release(ctx, line.ProductID, line.Quantity)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("stock release failed for product %s: %v", line.ProductID.Hex(), err))
			continue
		}
		levels = append(levels, models.StockLevel{ProductID: product.ID.Hex(), Stock: product.Stock})
	}

	if order.Coupon != nil {
		if err := s.coupons.RemoveOneUsedBy(ctx, *order.Coupon, order.CreatedBy); err != nil {
			warnings = append(warnings, fmt.Sprintf("coupon usage release failed: %v", err))
		}
	}

	if order.Payment == models.PaymentCard {
		switch {
		case order.PaidAt == nil || order.IntentID == "":
			// Payment was never captured; nothing to refund.
		default:
			if err := s.gateway.Refund(ctx, order.IntentID); err != nil {
				warnings = append(warnings, fmt.Sprintf("refund failed for intent %s: %v", order.IntentID, err))
			} else if s.payments != nil {
				if err := s.payments.MarkRefunded(ctx, order.IntentID, time.Now().UTC()); err != nil && !repository.IsNotFound(err) {
					s.logger.Warn("payment record refund update failed",
						zap.String("intent_id", order.IntentID),
						zap.Error(err),
					)
				}
			}
		}
	}

	for _, w := range warnings {
		s.logger.Error("cancel compensation incomplete",
			zap.String("order_code", order.OrderCode),
			zap.String("warning", w),
		)
	}

	s.publishStockChange(ctx, order.OrderCode, levels)
	s.publishOrderEvent(ctx, "order_canceled", order)
	metrics.OrdersCanceled.Inc()

	return &CancelOrderResult{Order: order, Warnings: warnings}, nil
}

// GetOrder returns one order scoped to its owner.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, *ServiceError) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, &ServiceError{StatusCode: 400, Code: CodeInvalidRequest, Message: "Invalid order id"}
	}
	order, err := s.orders.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ServiceError{StatusCode: 404, Code: CodeOrderNotFound, Message: "Order not found"}
		}
		return nil, unavailable(err)
	}
	return order, nil
}

// GetUserOrders returns the caller's orders, newest first, paginated.
func (s *OrderService) GetUserOrders(ctx context.Context, userID string, page, limit int) (*OrderListResult, *ServiceError) {
	orders, total, err := s.orders.FindByUser(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("order list failed", zap.String("user_id", userID), zap.Error(err))
		return nil, unavailable(err)
	}
	return &OrderListResult{
		Orders: orders,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  totalPages(total, limit),
			HasMore:     total > int64(page*limit),
		},
	}, nil
}

func (s *OrderService) publishStockChange(ctx context.Context, orderCode string, levels []models.StockLevel) {
	if s.stockPub == nil || len(levels) == 0 {
		return
	}
	if err := s.stockPub.PublishStockChange(ctx, levels); err != nil {
		s.logger.Warn("stock change publish failed",
			zap.String("order_code", orderCode),
			zap.Error(err),
		)
	}
}

// publishOrderEvent publishes a lifecycle event to SNS, best-effort.
func (s *OrderService) publishOrderEvent(ctx context.Context, eventType string, order *models.Order) {
	if s.sns == nil || s.snsTopicArn == "" {
		return
	}
	event := models.OrderEvent{
		Type:      eventType,
		OrderCode: order.OrderCode,
		UserID:    order.CreatedBy,
		Payment:   string(order.Payment),
		Total:     order.Total,
		SubTotal:  order.SubTotal,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.sns.Publish(ctx, s.snsTopicArn, payload); err != nil {
		s.logger.Warn("order event publish failed",
			zap.String("event_type", eventType),
			zap.String("order_code", order.OrderCode),
			zap.Error(err),
		)
	}
}

func productUnavailable(productID string) *ServiceError {
	return &ServiceError{
		StatusCode: 404,
		Code:       CodeProductUnavailable,
		Message:    fmt.Sprintf("Product %s is unavailable or out of stock", productID),
	}
}

func reserveFailureReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrInsufficientStock):
		return CodeInsufficientStock
	case errors.Is(err, repository.ErrNotFound):
		return CodeProductUnavailable
	default:
		return CodeUnavailable
	}
}

func totalPages(total int64, limit int) int64 {
	if limit == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
