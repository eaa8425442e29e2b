package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"order-service/models"

	"github.com/redis/go-redis/v9"
)

// CartRepository is the cart source consumed by order creation. Carts live
// in Redis as one JSON blob per user.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	SaveCart(ctx context.Context, cart *models.Cart) error
	DeleteCart(ctx context.Context, userID string) error
}

type RedisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartRepository(client *redis.Client, ttl time.Duration) *RedisCartRepository {
	return &RedisCartRepository{client: client, ttl: ttl}
}

func (r *RedisCartRepository) key(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

// GetCart returns nil without error when the user has no cart.
func (r *RedisCartRepository) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &cart, nil
}

func (r *RedisCartRepository) SaveCart(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return r.client.Set(ctx, r.key(cart.UserID), data, r.ttl).Err()
}

func (r *RedisCartRepository) DeleteCart(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}
