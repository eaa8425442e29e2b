package services

import (
	"context"
	"errors"

	"order-service/models"
	"order-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CartService maintains the per-user working set the order flow consumes.
// Quantities here are advisory; order creation re-validates against live
// stock before anything is reserved.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *zap.Logger) *CartService {
	return &CartService{carts: carts, products: products, logger: logger}
}

// GetCart returns the user's cart, empty rather than nil when none exists.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, *ServiceError) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		s.logger.Error("cart lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil, unavailable(err)
	}
	if cart == nil {
		cart = &models.Cart{UserID: userID, Products: []models.CartItem{}}
	}
	return cart, nil
}

// UpsertItem sets the quantity for a product line, replacing any existing
// line for the same product.
func (s *CartService) UpsertItem(ctx context.Context, userID string, item models.CartItem) (*models.Cart, *ServiceError) {
	pid, err := primitive.ObjectIDFromHex(item.ProductID)
	if err != nil {
		return nil, &ServiceError{StatusCode: 400, Code: CodeProductUnavailable, Message: "Invalid product id"}
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

	cart, svcErr := s.GetCart(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}

	replaced := false
	for i := range cart.Products {
		if cart.Products[i].ProductID == item.ProductID {
			cart.Products[i].Quantity = item.Quantity
			replaced = true
			break
		}
	}
	if !replaced {
		cart.Products = append(cart.Products, item)
	}

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		s.logger.Error("cart save failed", zap.String("user_id", userID), zap.Error(err))
		return nil, unavailable(err)
	}
	return cart, nil
}

// RemoveItem drops a product line. Removing the last line deletes the cart key.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, *ServiceError) {
	cart, svcErr := s.GetCart(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}

	kept := cart.Products[:0]
	for _, line := range cart.Products {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	cart.Products = kept

	if len(cart.Products) == 0 {
		if err := s.carts.DeleteCart(ctx, userID); err != nil {
			return nil, unavailable(err)
		}
		return cart, nil
	}

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return nil, unavailable(err)
	}
	return cart, nil
}
