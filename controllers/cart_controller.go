package controllers

import (
	"net/http"

	"order-service/middleware"
	"order-service/models"
	"order-service/services"

	"github.com/gin-gonic/gin"
)

type CartController struct {
	cartService *services.CartService
}

func NewCartController(cartService *services.CartService) *CartController {
	return &CartController{cartService: cartService}
}

func (cc *CartController) GetCart(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	cart, serviceErr := cc.cartService.GetCart(ctx.Request.Context(), userID)
	if serviceErr != nil {
		respondServiceError(ctx, serviceErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"cart": cart})
}

// UpsertItem sets the quantity for one product line in the caller's cart.
func (cc *CartController) UpsertItem(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var item models.CartItem
	if err := ctx.ShouldBindJSON(&item); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	cart, serviceErr := cc.cartService.UpsertItem(ctx.Request.Context(), userID, item)
	if serviceErr != nil {
		respondServiceError(ctx, serviceErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"cart": cart})
}

func (cc *CartController) RemoveItem(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	cart, serviceErr := cc.cartService.RemoveItem(ctx.Request.Context(), userID, ctx.Param("productId"))
	if serviceErr != nil {
		respondServiceError(ctx, serviceErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"cart": cart})
}
