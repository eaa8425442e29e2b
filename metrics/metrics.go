package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "order_service",
		Name:      "orders_created_total",
		Help:      "Orders created, by payment type.",
	}, []string{"payment"})

	OrdersCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "order_service",
		Name:      "orders_canceled_total",
		Help:      "Orders canceled.",
	})

	CouponRedemptions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "order_service",
		Name:      "coupon_redemptions_total",
		Help:      "Coupon redemptions recorded on order creation.",
	})

	ReservationShortfalls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "order_service",
		Name:      "reservation_shortfalls_total",
		Help:      "Stock reservations that failed after the order was persisted.",
	})

	CheckoutsInitiated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "order_service",
		Name:      "checkouts_initiated_total",
		Help:      "Card checkout sessions opened against the gateway.",
	})

	PaymentWebhooks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "order_service",
		Name:      "payment_webhooks_total",
		Help:      "Gateway webhook deliveries, by outcome.",
	}, []string{"outcome"}) // processed, ignored, invalid

	OrderCreateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "order_service",
		Name:      "order_create_duration_seconds",
		Help:      "End-to-end latency of order creation.",
		Buckets:   prometheus.DefBuckets,
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "order_service",
		Name:      "http_requests_total",
		Help:      "HTTP requests, by method, route and status class.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "order_service",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
