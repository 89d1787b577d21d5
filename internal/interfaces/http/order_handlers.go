package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// CreateOrderRequest is the checkout payload
type CreateOrderRequest struct {
	CustomerID       string             `json:"customer_id"`
	SellerID         string             `json:"seller_id"`
	Items            []entity.OrderItem `json:"items"`
	ShippingCents    int64              `json:"shipping_cents"`
	DiscountCents    int64              `json:"discount_cents"`
	TaxCents         int64              `json:"tax_cents"`
	TotalAmountCents int64              `json:"total_amount_cents"`
	PaymentMethod    string             `json:"payment_method"`
	ShippingAddress  string             `json:"shipping_address"`
}

// UpdateStatusRequest asks for one transition
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AttachTrackingRequest sets the carrier tracking number
type AttachTrackingRequest struct {
	TrackingNumber    string        `json:"tracking_number"`
	EstimatedDelivery *DeliveryDate `json:"estimated_delivery"`
}

// DeliveryDate accepts a calendar date (2006-01-02) or an RFC3339 timestamp.
// A bare date is midnight UTC.
type DeliveryDate struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (d *DeliveryDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("estimated_delivery must be a date string: %w", err)
	}
	raw = strings.TrimSpace(raw)

	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("estimated_delivery %q is neither YYYY-MM-DD nor RFC3339", raw)
	}
	d.Time = t
	return nil
}

// ptr returns nil for an absent date
func (d *DeliveryDate) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// InvoiceEligibilityResponse reports whether an invoice may be issued
type InvoiceEligibilityResponse struct {
	OrderID  string          `json:"order_id"`
	Status   workflow.Status `json:"status"`
	Eligible bool            `json:"eligible"`
}

// OrderListResponse is one page of a seller's orders
type OrderListResponse struct {
	Orders     []*entity.Order `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// CreateOrder handles POST /api/v1/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !h.bind(c, &req) {
		return
	}

	order := &entity.Order{
		Entity: entity.Entity{OwnerID: req.CustomerID},
		OrderDetails: entity.OrderDetails{
			SellerID:         req.SellerID,
			Items:            req.Items,
			ShippingCents:    req.ShippingCents,
			DiscountCents:    req.DiscountCents,
			TaxCents:         req.TaxCents,
			TotalAmountCents: req.TotalAmountCents,
			PaymentMethod:    req.PaymentMethod,
			ShippingAddress:  req.ShippingAddress,
		},
	}

	created, err := h.deps.Orders.Create(c.Request.Context(), order, mustActor(c))
	if err != nil {
		h.respondError(c, "create_order", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: created})
}

// GetOrder handles GET /api/v1/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	order, ok := h.visibleOrder(c, "get_order")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: order})
}

// UpdateOrderStatus handles PUT /api/v1/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !h.bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	actor := mustActor(c)
	requested := workflow.Status(strings.ToLower(strings.TrimSpace(req.Status)))

	var order *entity.Order
	err := h.retry(ctx, "update_order_status", func() error {
		var err error
		order, err = h.deps.Orders.UpdateStatus(ctx, c.Param("id"), requested, actor)
		return err
	})
	if err != nil {
		h.respondError(c, "update_order_status", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: order})
}

// AttachTracking handles PUT /api/v1/orders/:id/tracking
func (h *Handlers) AttachTracking(c *gin.Context) {
	var req AttachTrackingRequest
	if !h.bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	actor := mustActor(c)

	var order *entity.Order
	err := h.retry(ctx, "attach_tracking", func() error {
		var err error
		order, err = h.deps.Orders.AttachTracking(ctx, c.Param("id"), req.TrackingNumber, req.EstimatedDelivery.ptr(), actor)
		return err
	})
	if err != nil {
		h.respondError(c, "attach_tracking", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: order})
}

// InvoiceEligibility handles GET /api/v1/orders/:id/invoice-eligibility
func (h *Handlers) InvoiceEligibility(c *gin.Context) {
	order, ok := h.visibleOrder(c, "invoice_eligibility")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: InvoiceEligibilityResponse{
			OrderID:  order.ID,
			Status:   order.Status,
			Eligible: h.deps.Orders.IsInvoiceEligible(order),
		},
	})
}

// ListSellerOrders handles GET /api/v1/sellers/:id/orders
func (h *Handlers) ListSellerOrders(c *gin.Context) {
	sellerID := c.Param("id")
	if err := sameSellerOrAdmin(mustActor(c), sellerID); err != nil {
		h.respondError(c, "list_seller_orders", err)
		return
	}

	var statuses []workflow.Status
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, workflow.Status(strings.ToLower(s)))
			}
		}
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.respondError(c, "list_seller_orders", workflow.NewValidationError("limit", "must be an integer"))
			return
		}
		limit = n
	}

	page, err := h.deps.Orders.ListBySeller(c.Request.Context(), sellerID, statuses, c.Query("cursor"), limit)
	if err != nil {
		h.respondError(c, "list_seller_orders", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    OrderListResponse{Orders: page.Orders, NextCursor: page.NextCursor},
	})
}

// visibleOrder loads the order and checks the caller may see it:
// admins see all, customers their own, sellers the ones they fulfil
func (h *Handlers) visibleOrder(c *gin.Context, op string) (*entity.Order, bool) {
	order, err := h.deps.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, op, err)
		return nil, false
	}

	actor := mustActor(c)
	switch {
	case actor.Role == workflow.RoleAdmin,
		actor.Role == workflow.RoleCustomer && order.OwnerID == actor.ID,
		actor.Role == workflow.RoleSeller && order.SellerID == actor.ID:
		return order, true
	}

	h.respondError(c, op, fmt.Errorf("%w: %s %s may not view order %s", workflow.ErrForbiddenRole, actor.Role, actor.ID, order.ID))
	return nil, false
}
