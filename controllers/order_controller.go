package controllers

import (
	"net/http"
	"strconv"

	"order-service/middleware"
	"order-service/models"
	"order-service/services"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	orderService   *services.OrderService
	paymentService *services.PaymentService
}

func NewOrderController(orderService *services.OrderService, paymentService *services.PaymentService) *OrderController {
	return &OrderController{
		orderService:   orderService,
		paymentService: paymentService,
	}
}

// CreateOrder converts the caller's cart into an order.
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, serviceErr := oc.orderService.CreateOrder(ctx.Request.Context(), userID, &req)
	if serviceErr != nil {
		respondServiceError(ctx, serviceErr)
		return
	}

	body := gin.H{"order": result.Order}
	if len(result.Unreserved) > 0 {
		body["unreserved"] = result.Unreserved
	}
	ctx.JSON(http.StatusCreated, body)
}

// GetOrders returns paginated orders for the authenticated user.
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, limit := parsePaginationParams(ctx)

	result, serviceErr := oc.orderService.GetUserOrders(ctx.Request.Context(), userID, page, limit)
	if serviceErr != nil {
		respondServiceError(ctx, serviceErr)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// GetOrderByID returns a specific order for the authenticated user.
func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, serviceErr := oc.orderService.GetOrder(ctx.Request.Context(), userID, ctx.Param("id"))
	if serviceErr != nil {
		respondServiceError(ctx, serviceErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// Checkout opens the payment gateway handshake for a pending card order.
func (oc *OrderController) Checkout(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, serviceErr := oc.paymentService.InitiateCheckout(ctx.Request.Context(), userID, ctx.Param("id"))
	if serviceErr != nil {
		respondServiceError(ctx, serviceErr)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// CancelOrder cancels a non-terminal order and reports any compensation
// failures alongside the canceled order.
func (oc *OrderController) CancelOrder(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CancelOrderRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
			return
		}
	}

	result, serviceErr := oc.orderService.CancelOrder(ctx.Request.Context(), userID, ctx.Param("id"), req.Reason)
	if serviceErr != nil {
		respondServiceError(ctx, serviceErr)
		return
	}

	body := gin.H{"order": result.Order}
	if len(result.Warnings) > 0 {
		body["warnings"] = result.Warnings
	}
	ctx.JSON(http.StatusOK, body)
}

func respondServiceError(ctx *gin.Context, err *services.ServiceError) {
	ctx.JSON(err.StatusCode, gin.H{"error": err.Message, "code": err.Code})
}

// parsePaginationParams extracts and validates pagination parameters.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const MaxLimit = 100

	pageInt, limitInt := 1, 10

	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		limitInt = l
		if limitInt > MaxLimit {
			limitInt = MaxLimit
		}
	}

	return pageInt, limitInt
}
