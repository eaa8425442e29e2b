package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"order-service/metrics"
	"order-service/models"
	awspkg "order-service/pkg/aws"
	"order-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PaymentService owns the gateway handshake for card orders and the webhook
// reconciliation that moves them from Pending to Placed. It never changes
// order status during checkout; only the webhook does.
type PaymentService struct {
	orders      repository.OrderRepository
	products    repository.ProductRepository
	payments    repository.PaymentRepository
	gateway     PaymentGateway
	sns         awspkg.SNSPublisher
	snsTopicArn string
	currency    string
	logger      *zap.Logger
}

func NewPaymentService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	payments repository.PaymentRepository,
	gateway PaymentGateway,
	sns awspkg.SNSPublisher,
	snsTopicArn string,
	currency string,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		orders:      orders,
		products:    products,
		payments:    payments,
		gateway:     gateway,
		sns:         sns,
		snsTopicArn: snsTopicArn,
		currency:    currency,
		logger:      logger,
	}
}

// InitiateCheckout runs the gateway handshake for a Pending card order owned
// by the caller: a checkout session carrying the order id in its metadata, a
// card payment method, and a payment intent over the discounted amount. The
// intent id is stored on the order; confirmation waits for the webhook.
func (s *PaymentService) InitiateCheckout(ctx context.Context, userID, orderID string) (*models.CheckoutResponse, *ServiceError) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, &ServiceError{StatusCode: 400, Code: CodeInvalidRequest, Message: "Invalid order id"}
	}

	order, err := s.orders.FindPendingCardOrder(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ServiceError{StatusCode: 404, Code: CodeOrderNotFound, Message: "No pending card order found"}
		}
		return nil, unavailable(err)
	}

	var couponIDs []string
	if order.Discount > 0 {
		couponID, err := s.gateway.CreateCoupon(ctx, order.Discount*100)
		if err != nil {
			return nil, gatewayError("coupon creation failed", err)
		}
		couponIDs = append(couponIDs, couponID)
	}

	items := make([]GatewayLineItem, 0, len(order.Products))
	for _, line := range order.Products {
		items = append(items, GatewayLineItem{
			Name:       s.lineItemName(ctx, line.ProductID),
			Quantity:   int64(line.Quantity),
			UnitAmount: toMinorUnits(line.UnitPrice),
		})
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, CheckoutInput{
		OrderID:   order.ID.Hex(),
		Currency:  s.currency,
		Items:     items,
		CouponIDs: couponIDs,
	})
	if err != nil {
		return nil, gatewayError("checkout session failed", err)
	}

	methodID, err := s.gateway.CreatePaymentMethod(ctx)
	if err != nil {
		return nil, gatewayError("payment method failed", err)
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, toMinorUnits(order.SubTotal), s.currency, methodID)
	if err != nil {
		return nil, gatewayError("payment intent failed", err)
	}

	if err := s.orders.SetIntentID(ctx, order.ID, intent.ID); err != nil {
		s.logger.Error("intent id persist failed",
			zap.String("order_code", order.OrderCode),
			zap.String("intent_id", intent.ID),
			zap.Error(err),
		)
		return nil, unavailable(err)
	}

	// Audit row; the order remains the source of truth for state.
	if s.payments != nil {
		row := &models.Payment{
			OrderCode:       order.OrderCode,
			UserID:          order.CreatedBy,
			Amount:          toMinorUnits(order.SubTotal),
			Currency:        s.currency,
			Status:          models.PaymentStatusPending,
			StripeSessionID: sess.ID,
			StripeIntentID:  intent.ID,
		}
		if err := s.payments.Create(ctx, row); err != nil {
			s.logger.Warn("payment audit row failed",
				zap.String("order_code", order.OrderCode),
				zap.Error(err),
			)
		}
	}

	metrics.CheckoutsInitiated.Inc()

	return &models.CheckoutResponse{
		SessionID:    sess.ID,
		SessionURL:   sess.URL,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// HandleWebhook reconciles a gateway success callback. The conditional
// MarkPaid makes redelivered or out-of-order events a no-op: anything that
// does not match a Pending card order is reported as not found and changes
// nothing.
func (s *PaymentService) HandleWebhook(ctx context.Context, r *http.Request) *ServiceError {
	event, err := s.gateway.ParseWebhook(r)
	if err != nil {
		metrics.PaymentWebhooks.WithLabelValues("invalid").Inc()
		return gatewayErrorWithStatus(400, "Invalid webhook payload", err)
	}

	if event.OrderID == "" {
		metrics.PaymentWebhooks.WithLabelValues("invalid").Inc()
		return &ServiceError{StatusCode: 400, Code: CodeInvalidRequest, Message: "Webhook has no order reference"}
	}
	id, err := primitive.ObjectIDFromHex(event.OrderID)
	if err != nil {
		metrics.PaymentWebhooks.WithLabelValues("invalid").Inc()
		return &ServiceError{StatusCode: 400, Code: CodeInvalidRequest, Message: "Webhook has a malformed order reference"}
	}

	paidAt := time.Now().UTC()
	order, err := s.orders.MarkPaid(ctx, id, paidAt)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.PaymentWebhooks.WithLabelValues("ignored").Inc()
			s.logger.Info("webhook without a matching pending card order",
				zap.String("order_id", event.OrderID),
				zap.String("event_type", event.Type),
			)
			return &ServiceError{StatusCode: 404, Code: CodeOrderNotFound, Message: "No matching order"}
		}
		return unavailable(err)
	}

	if order.IntentID != "" {
		if err := s.gateway.ConfirmPaymentIntent(ctx, order.IntentID); err != nil {
			// The order is already Placed; capture is retried out of band.
			s.logger.Error("payment intent confirm failed",
				zap.String("order_code", order.OrderCode),
				zap.String("intent_id", order.IntentID),
				zap.Error(err),
			)
			return gatewayError("payment intent confirm failed", err)
		}

		if s.payments != nil {
			if err := s.payments.MarkSucceeded(ctx, order.IntentID, paidAt); err != nil && !repository.IsNotFound(err) {
				s.logger.Warn("payment record success update failed",
					zap.String("intent_id", order.IntentID),
					zap.Error(err),
				)
			}
		}
	}

	s.publishPaymentEvent(ctx, order)
	metrics.PaymentWebhooks.WithLabelValues("processed").Inc()

	s.logger.Info("order paid",
		zap.String("order_code", order.OrderCode),
		zap.String("intent_id", order.IntentID),
		zap.Float64("amount", order.SubTotal),
	)
	return nil
}

// lineItemName resolves the catalog name for a checkout line, falling back to
// the product id when the product has since disappeared.
func (s *PaymentService) lineItemName(ctx context.Context, productID primitive.ObjectID) string {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return productID.Hex()
	}
	return product.Name
}

func (s *PaymentService) publishPaymentEvent(ctx context.Context, order *models.Order) {
	if s.sns == nil || s.snsTopicArn == "" {
		return
	}
	event := models.OrderEvent{
		Type:      "payment_succeeded",
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
		s.logger.Warn("payment event publish failed",
			zap.String("order_code", order.OrderCode),
			zap.Error(err),
		)
	}
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func gatewayError(message string, err error) *ServiceError {
	return gatewayErrorWithStatus(502, message, err)
}

func gatewayErrorWithStatus(status int, message string, err error) *ServiceError {
	return &ServiceError{StatusCode: status, Code: CodeGatewayError, Message: message, Err: err}
}
