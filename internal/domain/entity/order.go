package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// OrderItem is one line of an order
type OrderItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// SubtotalCents returns quantity x unit price
func (i OrderItem) SubtotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// OrderDetails holds the order-specific fields
type OrderDetails struct {
	SellerID          string      `json:"seller_id"`
	Items             []OrderItem `json:"items"`
	ShippingCents     int64       `json:"shipping_cents"`
	DiscountCents     int64       `json:"discount_cents"`
	TaxCents          int64       `json:"tax_cents"`
	TotalAmountCents  int64       `json:"total_amount_cents"`
	TrackingNumber    string      `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time  `json:"estimated_delivery,omitempty"`
	PaymentMethod     string      `json:"payment_method"`
	ShippingAddress   string      `json:"shipping_address"`
}

// Order is a customer order moving through fulfillment
type Order struct {
	Entity
	OrderDetails
}

// Details implements WorkflowEntity
func (o *Order) Details() interface{} {
	return &o.OrderDetails
}

// SellerRef implements SellerScoped
func (o *Order) SellerRef() string {
	return o.SellerID
}

// ComputeTotalCents returns item subtotals + shipping - discount + tax
func (o *Order) ComputeTotalCents() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.SubtotalCents()
	}
	return total + o.ShippingCents - o.DiscountCents + o.TaxCents
}

// RecalculateTotal sets TotalAmountCents from the items and adjustments
func (o *Order) RecalculateTotal() {
	o.TotalAmountCents = o.ComputeTotalCents()
}

// HasTracking returns true once a tracking number is attached
func (o *Order) HasTracking() bool {
	return o.TrackingNumber != ""
}

// Validate checks the order fields supplied at checkout
func (o *Order) Validate() error {
	if strings.TrimSpace(o.OwnerID) == "" {
		return workflow.NewValidationError("owner_id", "customer is required")
	}
	if strings.TrimSpace(o.SellerID) == "" {
		return workflow.NewValidationError("seller_id", "seller is required")
	}
	if len(o.Items) == 0 {
		return workflow.NewValidationError("items", "at least one item is required")
	}
	for i, item := range o.Items {
		if item.ProductID == "" {
			return workflow.NewValidationError("items", fmt.Sprintf("item %d has no product", i))
		}
		if item.Quantity <= 0 {
			return workflow.NewValidationError("items", fmt.Sprintf("item %d quantity must be positive", i))
		}
		if item.UnitPriceCents < 0 {
			return workflow.NewValidationError("items", fmt.Sprintf("item %d price must not be negative", i))
		}
	}
	if o.ShippingCents < 0 || o.DiscountCents < 0 || o.TaxCents < 0 {
		return workflow.NewValidationError("amounts", "shipping, discount and tax must not be negative")
	}
	if o.TotalAmountCents != o.ComputeTotalCents() {
		return workflow.NewValidationError("total_amount_cents",
			fmt.Sprintf("total %d does not match computed %d", o.TotalAmountCents, o.ComputeTotalCents()))
	}
	if o.TotalAmountCents < 0 {
		return workflow.NewValidationError("total_amount_cents", "total must not be negative")
	}
	return nil
}

// IsInvoiceEligible returns true for every status except pending
func IsInvoiceEligible(o *Order) bool {
	return o.Status != workflow.OrderPending
}
