package entity

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

func newTestOrder() *Order {
	o := &Order{
		Entity: Entity{ID: "O1", Kind: workflow.KindOrder, Status: workflow.OrderPending, OwnerID: "cust-1"},
		OrderDetails: OrderDetails{
			SellerID: "seller-1",
			Items: []OrderItem{
				{ProductID: "p1", Quantity: 2, UnitPriceCents: 1500},
				{ProductID: "p2", Quantity: 1, UnitPriceCents: 999},
			},
			ShippingCents: 500,
			DiscountCents: 200,
			TaxCents:      300,
		},
	}
	o.RecalculateTotal()
	return o
}

func TestOrder_ComputeTotalCents(t *testing.T) {
	o := newTestOrder()

	assert.Equal(t, int64(3000+999+500-200+300), o.ComputeTotalCents())
	assert.Equal(t, o.ComputeTotalCents(), o.TotalAmountCents)
	require.NoError(t, o.Validate())
}

func TestOrder_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Order)
		field  string
	}{
		{"missing customer", func(o *Order) { o.OwnerID = "" }, "owner_id"},
		{"missing seller", func(o *Order) { o.SellerID = " " }, "seller_id"},
		{"no items", func(o *Order) { o.Items = nil; o.RecalculateTotal() }, "items"},
		{"zero quantity", func(o *Order) { o.Items[0].Quantity = 0; o.RecalculateTotal() }, "items"},
		{"negative tax", func(o *Order) { o.TaxCents = -1; o.RecalculateTotal() }, "amounts"},
		{"total mismatch", func(o *Order) { o.TotalAmountCents++ }, "total_amount_cents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrder()
			tt.mutate(o)

			err := o.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, workflow.ErrValidation))

			var verr *workflow.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestIsInvoiceEligible(t *testing.T) {
	o := newTestOrder()
	assert.False(t, IsInvoiceEligible(o))

	for _, s := range []workflow.Status{workflow.OrderProcessing, workflow.OrderShipped, workflow.OrderDelivered, workflow.OrderCancelled} {
		o.Status = s
		assert.True(t, IsInvoiceEligible(o), s)
	}
}

func TestEntity_AppendAndHistory(t *testing.T) {
	o := newTestOrder()
	o.MarkCommitted()
	actor := Actor{ID: "s1", Role: workflow.RoleSeller}
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	o.Append(TrackStatus, workflow.OrderPending, workflow.OrderProcessing, actor, "", t0)
	o.Append(TrackStatus, workflow.OrderProcessing, workflow.OrderProcessing, actor, "TRK1", t0.Add(time.Hour))

	assert.Equal(t, workflow.OrderProcessing, o.Status)
	assert.Len(t, o.UncommittedHistory(), 2)
	assert.Equal(t, 2, o.History[1].Seq)
	assert.Equal(t, t0, o.StatusSince(), "same-status entries do not reset time in status")
	assert.Equal(t, "TRK1", o.LatestFeedback())
	require.NoError(t, o.CheckConsistency(workflow.OrderPending))

	o.MarkCommitted()
	assert.Empty(t, o.UncommittedHistory())
}

func TestEntity_CheckConsistency(t *testing.T) {
	e := &Entity{ID: "x", Status: workflow.OrderPending}
	require.NoError(t, e.CheckConsistency(workflow.OrderPending))

	e.Status = workflow.OrderShipped
	assert.Error(t, e.CheckConsistency(workflow.OrderPending))
}

func TestEntity_CulturalTrackDoesNotMoveStatus(t *testing.T) {
	s := &SellerProfile{Entity: Entity{Status: workflow.SellerPending}}
	s.Append(TrackCulturalApproval, workflow.CulturalUnreviewed, workflow.CulturalApproved,
		Actor{ID: "a", Role: workflow.RoleAdmin}, "", time.Now())

	assert.Equal(t, workflow.SellerPending, s.Status)
	_, ok := s.LastEntry(TrackStatus)
	assert.False(t, ok)
	require.NoError(t, s.CheckConsistency(workflow.SellerPending))
}

func TestNew(t *testing.T) {
	for _, kind := range []workflow.Kind{workflow.KindOrder, workflow.KindSeller, workflow.KindCategoryRequest} {
		e, err := New(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, e.Base().Kind)
		assert.NotNil(t, e.Details())
	}

	_, err := New(workflow.Kind("INVOICE"))
	assert.Error(t, err)
}

func TestOrder_JSONFlattensDetails(t *testing.T) {
	o := newTestOrder()

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "O1", fields["id"])
	assert.Equal(t, "seller-1", fields["seller_id"])
	assert.NotContains(t, fields, "tracking_number")
}

func TestNormalizeCategoryName(t *testing.T) {
	assert.Equal(t, "home & garden", NormalizeCategoryName("  Home   &  Garden "))
	assert.Equal(t, "Home & Garden", CleanCategoryName("  Home   &  Garden "))
	assert.Equal(t, NormalizeCategoryName("Books"), NormalizeCategoryName("books"))

	assert.Error(t, ValidateCategoryName("   "))
	assert.NoError(t, ValidateCategoryName("Books"))
}
