package services_test

import (
	"context"
	"testing"

	"order-service/models"
	"order-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCartFixture(products []*models.Product, carts []*models.Cart) (*services.CartService, *mockCartRepo) {
	cartRepo := newMockCartRepo(carts...)
	logger, _ := zap.NewDevelopment()
	return services.NewCartService(cartRepo, newMockProductRepo(products...), logger), cartRepo
}

func TestGetCart_EmptyWhenMissing(t *testing.T) {
	svc, _ := newCartFixture(nil, nil)

	cart, svcErr := svc.GetCart(context.Background(), "user-1")
	require.Nil(t, svcErr)
	assert.Equal(t, "user-1", cart.UserID)
	assert.Empty(t, cart.Products)
}

func TestUpsertItem_AppendsThenReplaces(t *testing.T) {
	product := testProduct("keyboard", 10, 20)
	svc, _ := newCartFixture([]*models.Product{product}, nil)

	cart, svcErr := svc.UpsertItem(context.Background(), "user-1", models.CartItem{
		ProductID: product.ID.Hex(), Quantity: 2,
	})
	require.Nil(t, svcErr)
	require.Len(t, cart.Products, 1)
	assert.Equal(t, 2, cart.Products[0].Quantity)

	// Same product again replaces the quantity instead of adding a line.
	cart, svcErr = svc.UpsertItem(context.Background(), "user-1", models.CartItem{
		ProductID: product.ID.Hex(), Quantity: 5,
	})
	require.Nil(t, svcErr)
	require.Len(t, cart.Products, 1)
	assert.Equal(t, 5, cart.Products[0].Quantity)
}

func TestUpsertItem_RejectsOverStockQuantity(t *testing.T) {
	product := testProduct("keyboard", 3, 20)
	svc, _ := newCartFixture([]*models.Product{product}, nil)

	_, svcErr := svc.UpsertItem(context.Background(), "user-1", models.CartItem{
		ProductID: product.ID.Hex(), Quantity: 4,
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
	assert.Equal(t, services.CodeProductUnavailable, svcErr.Code)
}

func TestUpsertItem_UnknownProduct(t *testing.T) {
	svc, _ := newCartFixture(nil, nil)

	_, svcErr := svc.UpsertItem(context.Background(), "user-1", models.CartItem{
		ProductID: "not-a-hex-id", Quantity: 1,
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}

func TestRemoveItem_LastLineDeletesCart(t *testing.T) {
	product := testProduct("keyboard", 10, 20)
	svc, repo := newCartFixture(
		[]*models.Product{product},
		[]*models.Cart{cartFor("user-1", models.CartItem{ProductID: product.ID.Hex(), Quantity: 2})},
	)

	cart, svcErr := svc.RemoveItem(context.Background(), "user-1", product.ID.Hex())
	require.Nil(t, svcErr)
	assert.Empty(t, cart.Products)

	stored, err := repo.GetCart(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, stored, "empty cart is removed from the store")
}

func TestRemoveItem_KeepsOtherLines(t *testing.T) {
	keyboard := testProduct("keyboard", 10, 20)
	mouse := testProduct("mouse", 10, 10)
	svc, _ := newCartFixture(
		[]*models.Product{keyboard, mouse},
		[]*models.Cart{cartFor("user-1",
			models.CartItem{ProductID: keyboard.ID.Hex(), Quantity: 2},
			models.CartItem{ProductID: mouse.ID.Hex(), Quantity: 1},
		)},
	)

	cart, svcErr := svc.RemoveItem(context.Background(), "user-1", keyboard.ID.Hex())
	require.Nil(t, svcErr)
	require.Len(t, cart.Products, 1)
	assert.Equal(t, mouse.ID.Hex(), cart.Products[0].ProductID)
}
