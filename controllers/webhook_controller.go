package controllers

import (
	"net/http"

	"order-service/services"

	"github.com/gin-gonic/gin"
)

type WebhookController struct {
	paymentService *services.PaymentService
}

func NewWebhookController(paymentService *services.PaymentService) *WebhookController {
	return &WebhookController{paymentService: paymentService}
}

// HandleStripeWebhook verifies and reconciles gateway callbacks. Signature
// verification happens inside the service against the raw body.
func (wc *WebhookController) HandleStripeWebhook(ctx *gin.Context) {
	if serviceErr := wc.paymentService.HandleWebhook(ctx.Request.Context(), ctx.Request); serviceErr != nil {
		respondServiceError(ctx, serviceErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"received": true})
}
