package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

func feedOrder(id string, created time.Time, status workflow.Status) *entity.Order {
	return &entity.Order{
		Entity: entity.Entity{ID: id, Kind: workflow.KindOrder, Status: status, CreatedAt: created},
	}
}

func TestBuildFeed(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	policy := SLAPolicy{
		workflow.OrderPending:    {Window: 24 * time.Hour, Critical: 12 * time.Hour},
		workflow.OrderProcessing: {Window: 48 * time.Hour, Critical: 24 * time.Hour},
	}

	fresh := feedOrder("fresh", now.Add(-2*time.Hour), workflow.OrderPending)
	overdue := feedOrder("overdue", now.Add(-30*time.Hour), workflow.OrderPending)
	critical := feedOrder("critical", now.Add(-40*time.Hour), workflow.OrderPending)

	// Created long ago but only recently moved into processing
	moved := feedOrder("moved", now.Add(-200*time.Hour), workflow.OrderPending)
	moved.Append(entity.TrackStatus, workflow.OrderPending, workflow.OrderProcessing,
		entity.Actor{ID: "s", Role: workflow.RoleSeller}, "", now.Add(-10*time.Hour))
	// Tracking entries keep the status clock running
	moved.Append(entity.TrackStatus, workflow.OrderProcessing, workflow.OrderProcessing,
		entity.Actor{ID: "s", Role: workflow.RoleSeller}, "TRK9", now.Add(-1*time.Hour))

	delivered := feedOrder("done", now.Add(-500*time.Hour), workflow.OrderDelivered)

	feed := BuildFeed([]*entity.Order{fresh, moved, overdue, delivered, critical}, policy, now)

	assert.Equal(t, 5, feed.Total)
	assert.Equal(t, 4, feed.Pending)
	assert.Equal(t, 2, feed.Overdue)
	assert.Equal(t, 1, feed.Critical)

	require.Len(t, feed.Records, 4)
	ids := make([]string, len(feed.Records))
	for i, r := range feed.Records {
		ids[i] = r.OrderID
	}
	assert.Equal(t, []string{"critical", "overdue", "moved", "fresh"}, ids)

	assert.True(t, feed.Records[0].Critical)
	assert.True(t, feed.Records[0].Overdue)
	assert.False(t, feed.Records[1].Critical)

	movedRecord := feed.Records[2]
	assert.Equal(t, workflow.OrderProcessing, movedRecord.Status)
	assert.Equal(t, int64(10*3600), movedRecord.AgeSeconds)
	assert.False(t, movedRecord.Overdue)
	assert.Equal(t, "TRK9", movedRecord.Feedback)
}

func TestBuildFeed_BoundariesAndMissingPolicy(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	policy := SLAPolicy{workflow.OrderPending: {Window: time.Hour, Critical: time.Hour}}

	atWindow := feedOrder("at-window", now.Add(-time.Hour), workflow.OrderPending)
	atCritical := feedOrder("at-critical", now.Add(-2*time.Hour), workflow.OrderPending)
	noPolicy := feedOrder("no-policy", now.Add(-1000*time.Hour), workflow.OrderProcessing)
	future := feedOrder("future", now.Add(time.Hour), workflow.OrderPending)

	feed := BuildFeed([]*entity.Order{atWindow, atCritical, noPolicy, future}, policy, now)

	byID := map[string]NotificationRecord{}
	for _, r := range feed.Records {
		byID[r.OrderID] = r
	}
	assert.False(t, byID["at-window"].Overdue, "exactly at the window is not yet overdue")
	assert.True(t, byID["at-critical"].Overdue)
	assert.False(t, byID["at-critical"].Critical)
	assert.False(t, byID["no-policy"].Overdue)
	assert.Equal(t, int64(0), byID["future"].AgeSeconds)

	empty := BuildFeed(nil, policy, now)
	assert.Equal(t, 0, empty.Total)
	assert.NotNil(t, empty.Records)
}

func TestNotificationService_Summarize(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.orders.Create(ctx, checkoutOrder("late", "seller-1"), customer)
	require.NoError(t, err)
	h.advance(30 * time.Hour)
	_, err = h.orders.Create(ctx, checkoutOrder("recent", "seller-1"), customer)
	require.NoError(t, err)
	_, err = h.orders.Create(ctx, checkoutOrder("elsewhere", "seller-2"), customer)
	require.NoError(t, err)
	h.advance(2 * time.Hour)

	feed, err := h.notifications.Summarize(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, "seller-1", feed.SellerID)
	assert.Equal(t, 2, feed.Total)
	assert.Equal(t, 2, feed.Pending)
	assert.Equal(t, 1, feed.Overdue)
	assert.Equal(t, 0, feed.Critical)
	require.Len(t, feed.Records, 2)
	assert.Equal(t, "late", feed.Records[0].OrderID)

	_, err = h.notifications.Summarize(ctx, " ")
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestNotificationService_ScanOutstanding(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	seller3 := entity.Actor{ID: "seller-3", Role: workflow.RoleSeller}

	_, err := h.orders.Create(ctx, checkoutOrder("oldest", "seller-1"), customer)
	require.NoError(t, err)
	_, err = h.orders.Create(ctx, checkoutOrder("shipped-late", "seller-3"), customer)
	require.NoError(t, err)
	_, err = h.orders.UpdateStatus(ctx, "shipped-late", workflow.OrderProcessing, seller3)
	require.NoError(t, err)
	_, err = h.orders.UpdateStatus(ctx, "shipped-late", workflow.OrderShipped, seller3)
	require.NoError(t, err)

	h.advance(30 * time.Hour)
	_, err = h.orders.Create(ctx, checkoutOrder("overdue", "seller-2"), customer)
	require.NoError(t, err)
	h.advance(20 * time.Hour)
	_, err = h.orders.Create(ctx, checkoutOrder("fresh", "seller-4"), customer)
	require.NoError(t, err)
	h.advance(5 * time.Hour)

	feeds, err := h.notifications.ScanOutstanding(ctx)
	require.NoError(t, err)

	// seller-3 only has a shipped order and seller-4's order is within its window
	require.Len(t, feeds, 2)
	assert.Equal(t, "seller-1", feeds[0].SellerID)
	assert.Equal(t, 1, feeds[0].Critical)
	assert.Equal(t, "seller-2", feeds[1].SellerID)
	assert.Equal(t, 1, feeds[1].Overdue)
	assert.Equal(t, 0, feeds[1].Critical)
}
