package services

import (
	"context"
	"fmt"

	"order-service/models"
	"order-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// InventoryService is the only path through which order workflows mutate
// stock counters. Reserve and Release delegate to the storage layer's atomic
// conditional update; they are not idempotent, so callers must not retry
// blindly without checking whether the original attempt applied.
type InventoryService struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewInventoryService(products repository.ProductRepository, logger *zap.Logger) *InventoryService {
	return &InventoryService{products: products, logger: logger}
}

// Reserve decrements stock by quantity only if stock >= quantity at apply
// time. Returns the product with its new stock level, or
// repository.ErrInsufficientStock / repository.ErrNotFound.
func (s *InventoryService) Reserve(ctx context.Context, productID primitive.ObjectID, quantity int) (*models.Product, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}
	product, err := s.products.AdjustStock(ctx, productID, -quantity)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("stock reserved",
		zap.String("product_id", productID.Hex()),
		zap.Int("quantity", quantity),
		zap.Int("stock", product.Stock),
	)
	return product, nil
}

// Release increments stock by quantity. It succeeds unless the product no
// longer exists.
func (s *InventoryService) Release(ctx context.Context, productID primitive.ObjectID, quantity int) (*models.Product, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("release quantity must be positive, got %d", quantity)
	}
	product, err := s.products.AdjustStock(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("stock released",
		zap.String("product_id", productID.Hex()),
		zap.Int("quantity", quantity),
		zap.Int("stock", product.Stock),
	)
	return product, nil
}
