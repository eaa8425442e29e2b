package routes

import (
	"net/http"

	"order-service/controllers"
	"order-service/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register wires every route. The webhook stays outside the auth group since
// the gateway authenticates with its signature, not an identity header.
func Register(r *gin.Engine, orders *controllers.OrderController, carts *controllers.CartController, webhooks *controllers.WebhookController) {
	orderRoutes := r.Group("/orders")
	orderRoutes.Use(middleware.AuthMiddleware())
	orderRoutes.POST("", orders.CreateOrder)
	orderRoutes.GET("", orders.GetOrders)
	orderRoutes.GET("/:id", orders.GetOrderByID)
	orderRoutes.POST("/:id/checkout", orders.Checkout)
	orderRoutes.POST("/:id/cancel", orders.CancelOrder)

	cartRoutes := r.Group("/cart")
	cartRoutes.Use(middleware.AuthMiddleware())
	cartRoutes.GET("", carts.GetCart)
	cartRoutes.PUT("", carts.UpsertItem)
	cartRoutes.DELETE("/items/:productId", carts.RemoveItem)

	r.POST("/webhook/stripe", webhooks.HandleStripeWebhook)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
