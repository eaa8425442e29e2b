package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	stripecoupon "github.com/stripe/stripe-go/v80/coupon"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/paymentmethod"
	"github.com/stripe/stripe-go/v80/refund"
	"github.com/stripe/stripe-go/v80/webhook"
)

// GatewayLineItem is one order line expressed in the gateway's terms.
type GatewayLineItem struct {
	Name       string
	Quantity   int64
	UnitAmount int64 // minor units
}

// CheckoutInput carries everything needed to open a gateway checkout session.
type CheckoutInput struct {
	OrderID   string // hex storage id, round-tripped through webhook metadata
	Currency  string
	Items     []GatewayLineItem
	CouponIDs []string // gateway-side coupon ids
}

type GatewaySession struct {
	ID  string
	URL string
}

type GatewayIntent struct {
	ID           string
	ClientSecret string
}

// WebhookEvent is the subset of a gateway callback this core reconciles.
type WebhookEvent struct {
	Type     string
	OrderID  string
	IntentID string
}

// PaymentGateway abstracts the external payment provider.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*GatewaySession, error)
	CreatePaymentMethod(ctx context.Context) (string, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency, methodID string) (*GatewayIntent, error)
	ConfirmPaymentIntent(ctx context.Context, intentID string) error
	Refund(ctx context.Context, intentID string) error
	CreateCoupon(ctx context.Context, percentOff float64) (string, error)
	ParseWebhook(r *http.Request) (*WebhookEvent, error)
}

// StripeService implements PaymentGateway on stripe-go.
type StripeService struct {
	WebhookKey string
	SuccessURL string
	CancelURL  string
}

func NewStripeService(secretKey, webhookKey, successURL, cancelURL string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{
		WebhookKey: webhookKey,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	}
}

func (s *StripeService) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*GatewaySession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.Items))
	for _, item := range in.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(in.Currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.SuccessURL),
		CancelURL:  stripe.String(s.CancelURL),
		LineItems:  lineItems,
		Metadata:   map[string]string{"order_id": in.OrderID},
	}
	params.Context = ctx

	for _, id := range in.CouponIDs {
		params.Discounts = append(params.Discounts, &stripe.CheckoutSessionDiscountParams{
			Coupon: stripe.String(id),
		})
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &GatewaySession{ID: sess.ID, URL: sess.URL}, nil
}

// CreatePaymentMethod creates a card payment method from the test token.
func (s *StripeService) CreatePaymentMethod(ctx context.Context) (string, error) {
	params := &stripe.PaymentMethodParams{
		Type: stripe.String("card"),
		Card: &stripe.PaymentMethodCardParams{Token: stripe.String("tok_visa")},
	}
	params.Context = ctx

	pm, err := paymentmethod.New(params)
	if err != nil {
		return "", err
	}
	return pm.ID, nil
}

func (s *StripeService) CreatePaymentIntent(ctx context.Context, amount int64, currency, methodID string) (*GatewayIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(currency),
		PaymentMethod: stripe.String(methodID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &GatewayIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *StripeService) ConfirmPaymentIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	_, err := paymentintent.Confirm(intentID, params)
	return err
}

func (s *StripeService) Refund(ctx context.Context, intentID string) error {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	_, err := refund.New(params)
	return err
}

// CreateCoupon creates a single-use percentage coupon mirroring the order's
// discount fraction on the gateway side.
func (s *StripeService) CreateCoupon(ctx context.Context, percentOff float64) (string, error) {
	params := &stripe.CouponParams{
		Duration:   stripe.String(string(stripe.CouponDurationOnce)),
		PercentOff: stripe.Float64(percentOff),
	}
	params.Context = ctx

	c, err := stripecoupon.New(params)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the order
// reference from the event metadata.
func (s *StripeService) ParseWebhook(r *http.Request) (*WebhookEvent, error) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), s.WebhookKey)
	if err != nil {
		return nil, err
	}

	var obj struct {
		ID            string            `json:"id"`
		PaymentIntent string            `json:"payment_intent"`
		Metadata      map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return nil, err
	}

	return &WebhookEvent{
		Type:     string(event.Type),
		OrderID:  obj.Metadata["order_id"],
		IntentID: obj.PaymentIntent,
	}, nil
}
