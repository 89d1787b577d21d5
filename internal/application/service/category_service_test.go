package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/event"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

func TestCategoryService_ApproveUpsertsCatalogOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.categories.Submit(ctx, "Books", "paper and e-books", seller1)
	require.NoError(t, err)
	second, err := h.categories.Submit(ctx, "  books ", "", seller2)
	require.NoError(t, err)
	assert.Equal(t, "books", second.CategoryName)

	_, err = h.categories.Approve(ctx, first.ID, "", admin)
	require.NoError(t, err)
	approved, err := h.categories.Approve(ctx, second.ID, "already listed", admin)
	require.NoError(t, err)
	assert.Equal(t, workflow.CategoryApproved, approved.Status)
	assert.Equal(t, "already listed", approved.Feedback)

	catalog, err := h.categories.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Books", catalog[0].DisplayName)
	assert.Equal(t, 0, catalog[0].TotalProductCount)

	for _, id := range []string{first.ID, second.ID} {
		stored, err := h.categories.Get(ctx, id)
		require.NoError(t, err)
		require.Len(t, stored.History, 1)
		assert.Equal(t, workflow.CategoryApproved, stored.History[0].ToStatus)
	}

	catalogued := 0
	for _, typ := range h.publisher.types() {
		if typ == event.TypeCategoryCatalogued {
			catalogued++
		}
	}
	assert.Equal(t, 1, catalogued)
}

func TestCategoryService_DoubleRejectIsIllegalBothTimes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	request, err := h.categories.Submit(ctx, "Antiques", "", seller1)
	require.NoError(t, err)

	_, err = h.categories.Reject(ctx, request.ID, "", admin)
	assert.ErrorIs(t, err, workflow.ErrValidation, "rejection feedback is mandatory")

	rejected, err := h.categories.Reject(ctx, request.ID, "too broad", admin)
	require.NoError(t, err)
	assert.Equal(t, workflow.CategoryRejected, rejected.Status)
	assert.Equal(t, "too broad", rejected.Feedback)

	for i := 0; i < 2; i++ {
		_, err = h.categories.Reject(ctx, request.ID, "still too broad", admin)
		require.ErrorIs(t, err, workflow.ErrIllegalTransition)
	}
	_, err = h.categories.Approve(ctx, request.ID, "", admin)
	assert.ErrorIs(t, err, workflow.ErrIllegalTransition)

	stored, err := h.categories.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 1)
	assert.Equal(t, int64(2), stored.Version)

	catalog, err := h.categories.ListCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, catalog)

	// Resubmission is a new entity
	again, err := h.categories.Submit(ctx, "Antiques", "narrowed scope", seller1)
	require.NoError(t, err)
	assert.NotEqual(t, request.ID, again.ID)
	assert.Equal(t, workflow.CategoryPending, again.Status)
}

func TestCategoryService_Roles(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.categories.Submit(ctx, "Toys", "", customer)
	assert.ErrorIs(t, err, workflow.ErrForbiddenRole)

	_, err = h.categories.Submit(ctx, "   ", "", seller1)
	assert.ErrorIs(t, err, workflow.ErrValidation)

	request, err := h.categories.Submit(ctx, "Toys", "", seller1)
	require.NoError(t, err)

	_, err = h.categories.Approve(ctx, request.ID, "", seller1)
	assert.ErrorIs(t, err, workflow.ErrForbiddenRole)

	_, err = h.categories.CreateDirect(ctx, []string{"Games"}, seller1)
	assert.ErrorIs(t, err, workflow.ErrForbiddenRole)
}

func TestCategoryService_CreateDirect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, _, err := h.catalog.Upsert(ctx, "Garden")
	require.NoError(t, err)

	result, err := h.categories.CreateDirect(ctx, []string{"Kitchen", "garden", "Pets", "kitchen ", "Music"}, admin)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 2, result.Skipped)

	catalog, err := h.categories.ListCatalog(ctx)
	require.NoError(t, err)
	names := make([]string, len(catalog))
	for i, c := range catalog {
		names[i] = c.DisplayName
	}
	assert.Equal(t, []string{"Garden", "Kitchen", "Music", "Pets"}, names)

	_, err = h.categories.CreateDirect(ctx, []string{"Tools", " "}, admin)
	assert.ErrorIs(t, err, workflow.ErrValidation)
	_, err = h.catalog.Get(ctx, "Tools")
	assert.ErrorIs(t, err, workflow.ErrNotFound, "a rejected batch writes nothing")

	_, err = h.categories.CreateDirect(ctx, nil, admin)
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestCategoryService_ApproveRollsBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	request, err := h.categories.Submit(ctx, "Stationery", "", seller1)
	require.NoError(t, err)

	// Another writer gets there first
	concurrent, err := h.store.Load(ctx, request.ID)
	require.NoError(t, err)
	concurrent.Base().Append(entity.TrackStatus, workflow.CategoryPending, workflow.CategoryRejected, admin, "dup", h.now)
	require.NoError(t, h.store.Save(ctx, concurrent, 1))

	stale := &failingLoadStore{mockStore: mockStore{}, entity: request}
	stale.saveFunc = h.store.Save
	h.categories.store = stale

	_, err = h.categories.Approve(ctx, request.ID, "", admin)
	require.ErrorIs(t, err, workflow.ErrVersionConflict)

	_, err = h.catalog.Get(ctx, "Stationery")
	assert.ErrorIs(t, err, workflow.ErrNotFound, "the catalog upsert rolls back with the failed save")
}

// failingLoadStore serves a stale copy of an entity from Load
type failingLoadStore struct {
	mockStore
	entity *entity.CategoryRequest
}

func (s *failingLoadStore) Load(ctx context.Context, id string) (entity.WorkflowEntity, error) {
	if s.entity == nil || s.entity.ID != id {
		return nil, errors.New("unexpected load")
	}
	copied := *s.entity
	return &copied, nil
}
