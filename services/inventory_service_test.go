package services_test

import (
	"context"
	"sync"
	"testing"

	"order-service/models"
	"order-service/repository"
	"order-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newInventoryService(products ...*models.Product) (*services.InventoryService, *mockProductRepo) {
	repo := newMockProductRepo(products...)
	logger, _ := zap.NewDevelopment()
	return services.NewInventoryService(repo, logger), repo
}

func TestReserve_DecrementsStock(t *testing.T) {
	product := testProduct("keyboard", 10, 20)
	svc, _ := newInventoryService(product)

	updated, err := svc.Reserve(context.Background(), product.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Stock)
}

func TestReserve_InsufficientStock(t *testing.T) {
	product := testProduct("keyboard", 3, 20)
	svc, repo := newInventoryService(product)

	_, err := svc.Reserve(context.Background(), product.ID, 4)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	stored, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Stock, "failed reservation leaves stock untouched")
}

func TestReserve_UnknownProduct(t *testing.T) {
	svc, _ := newInventoryService()

	_, err := svc.Reserve(context.Background(), primitive.NewObjectID(), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReserve_RejectsNonPositiveQuantity(t *testing.T) {
	product := testProduct("keyboard", 10, 20)
	svc, _ := newInventoryService(product)

	_, err := svc.Reserve(context.Background(), product.ID, 0)
	assert.Error(t, err)
	_, err = svc.Reserve(context.Background(), product.ID, -2)
	assert.Error(t, err)
}

func TestRelease_RestoresStock(t *testing.T) {
	product := testProduct("keyboard", 2, 20)
	svc, _ := newInventoryService(product)

	updated, err := svc.Release(context.Background(), product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Stock)
}

func TestReserve_ConcurrentReservesNeverOversell(t *testing.T) {
	product := testProduct("keyboard", 10, 20)
	svc, repo := newInventoryService(product)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Reserve(context.Background(), product.ID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded, "exactly the available stock is granted")
	stored, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
}
