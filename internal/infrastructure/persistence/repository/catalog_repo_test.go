package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/persistence/sqlitetest"
)

func TestCatalogRepository_UpsertIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(sqlitetest.Open(t), zap.NewNop())

	first, created, err := repo.Upsert(ctx, "Books")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Books", first.DisplayName)
	assert.Equal(t, 0, first.TotalProductCount)

	second, created, err := repo.Upsert(ctx, "  books ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Books", second.DisplayName, "the first display name wins")

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCatalogRepository_UpsertRejectsBlank(t *testing.T) {
	repo := NewCatalogRepository(sqlitetest.Open(t), zap.NewNop())

	_, _, err := repo.Upsert(context.Background(), "   ")
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestCatalogRepository_ConcurrentUpsertCreatesOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(sqlitetest.Open(t), zap.NewNop())

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for _, name := range []string{"Garden", "garden", "GARDEN", "Garden "} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, created, err := repo.Upsert(ctx, name)
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}(name)
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCatalogRepository_GetAndSetProductCount(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(sqlitetest.Open(t), zap.NewNop())

	_, err := repo.Get(ctx, "Toys")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
	assert.ErrorIs(t, repo.SetProductCount(ctx, "Toys", 3), workflow.ErrNotFound)

	_, _, err = repo.Upsert(ctx, "Toys")
	require.NoError(t, err)
	require.NoError(t, repo.SetProductCount(ctx, "TOYS", 12))

	c, err := repo.Get(ctx, "toys")
	require.NoError(t, err)
	assert.Equal(t, 12, c.TotalProductCount)

	assert.ErrorIs(t, repo.SetProductCount(ctx, "Toys", -1), workflow.ErrValidation)
}

func TestProductCountRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProductCountRepository(sqlitetest.Open(t), zap.NewNop())

	count, err := repo.SellerProductCount(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, repo.SetSellerProductCount(ctx, "seller-1", 4))
	require.NoError(t, repo.SetSellerProductCount(ctx, "seller-1", 5))

	count, err = repo.SellerProductCount(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	assert.ErrorIs(t, repo.SetSellerProductCount(ctx, "", 1), workflow.ErrValidation)
	assert.ErrorIs(t, repo.SetSellerProductCount(ctx, "seller-1", -2), workflow.ErrValidation)
}
