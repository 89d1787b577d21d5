package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/marketplace-workflow/internal/application/dispatcher"
	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/event"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// OrderPage is one page of a seller's orders
type OrderPage struct {
	Orders     []*entity.Order `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// OrderService drives orders through fulfillment
type OrderService interface {
	// Create ingests a checkout order in the initial status
	Create(ctx context.Context, order *entity.Order, actor entity.Actor) (*entity.Order, error)

	Get(ctx context.Context, orderID string) (*entity.Order, error)

	// UpdateStatus moves the order along one edge of the fulfillment graph
	UpdateStatus(ctx context.Context, orderID string, requested workflow.Status, actor entity.Actor) (*entity.Order, error)

	// AttachTracking sets the tracking number once, while processing or shipped
	AttachTracking(ctx context.Context, orderID, trackingNumber string, estimatedDelivery *time.Time, actor entity.Actor) (*entity.Order, error)

	IsInvoiceEligible(order *entity.Order) bool

	ListBySeller(ctx context.Context, sellerID string, statuses []workflow.Status, cursor string, limit int) (*OrderPage, error)
}

type orderServiceImpl struct {
	store     port.EntityStore
	machine   *workflow.Machine
	publisher dispatcher.Publisher
	logger    Logger
	now       Clock
}

// NewOrderService creates a new OrderService
func NewOrderService(
	store port.EntityStore,
	registry *workflow.Registry,
	publisher dispatcher.Publisher,
	logger Logger,
) OrderService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &orderServiceImpl{
		store:     store,
		machine:   registry.MustMachine(workflow.KindOrder),
		publisher: publisher,
		logger:    logger,
		now:       systemClock,
	}
}

// Create validates and stores a new order in pending
func (s *orderServiceImpl) Create(ctx context.Context, order *entity.Order, actor entity.Actor) (*entity.Order, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, workflow.NewValidationError("order", "order is required")
	}

	switch actor.Role {
	case workflow.RoleCustomer:
		if order.OwnerID != "" && order.OwnerID != actor.ID {
			return nil, fmt.Errorf("%w: customers may only place their own orders", workflow.ErrForbiddenRole)
		}
		order.OwnerID = actor.ID
	case workflow.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: %s may not place orders", workflow.ErrForbiddenRole, actor.Role)
	}

	now := s.now()
	order.Kind = workflow.KindOrder
	order.Status = s.machine.Initial()
	order.Version = 0
	order.History = nil
	order.TrackingNumber = ""
	order.EstimatedDelivery = nil
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.TotalAmountCents == 0 {
		order.RecalculateTotal()
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, order); err != nil {
		s.logger.Error("Failed to create order", "error", err, "customer", order.OwnerID)
		return nil, err
	}

	s.logger.Info("Order created", "order_id", order.ID, "seller_id", order.SellerID, "total_cents", order.TotalAmountCents)
	s.publisher.Publish(ctx, event.NewEvent(event.TypeEntityCreated, &order.Entity, map[string]interface{}{
		"seller_id":          order.SellerID,
		"total_amount_cents": order.TotalAmountCents,
	}))
	return order, nil
}

// Get retrieves an order with its history
func (s *orderServiceImpl) Get(ctx context.Context, orderID string) (*entity.Order, error) {
	return loadAs[*entity.Order](ctx, s.store, orderID, workflow.KindOrder)
}

// UpdateStatus loads the order, asks the machine and saves the transition
func (s *orderServiceImpl) UpdateStatus(ctx context.Context, orderID string, requested workflow.Status, actor entity.Actor) (*entity.Order, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	order, err := loadAs[*entity.Order](ctx, s.store, orderID, workflow.KindOrder)
	if err != nil {
		return nil, err
	}

	if err := checkSellerScope(order, actor, requested); err != nil {
		return nil, err
	}

	d := s.machine.Evaluate(order.Status, requested, actor.Role, order)
	if !d.Allowed {
		s.logger.Info("Order transition denied", "order_id", orderID, "from", order.Status, "to", requested, "reason", d.Reason)
		return nil, d.Err()
	}

	h, err := commitTransition(ctx, s.store, order, entity.TrackStatus, d, actor, "", s.now())
	if err != nil {
		s.logger.Error("Failed to save order transition", "error", err, "order_id", orderID, "to", requested)
		return nil, err
	}

	s.logger.Info("Order status updated", "order_id", orderID, "from", h.FromStatus, "to", h.ToStatus, "actor", actor.ID)
	s.publisher.Publish(ctx, event.NewTransitionEvent(event.TypeStatusChanged, &order.Entity, h))
	return order, nil
}

// AttachTracking records the tracking number as a same-status history entry
func (s *orderServiceImpl) AttachTracking(
	ctx context.Context,
	orderID, trackingNumber string,
	estimatedDelivery *time.Time,
	actor entity.Actor,
) (*entity.Order, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	tracking := strings.TrimSpace(trackingNumber)
	if tracking == "" {
		return nil, workflow.NewValidationError("tracking_number", "tracking number is required")
	}

	order, err := loadAs[*entity.Order](ctx, s.store, orderID, workflow.KindOrder)
	if err != nil {
		return nil, err
	}

	// Tracking has one failure code for wrong role and wrong status
	if actor.Role != workflow.RoleSeller && actor.Role != workflow.RoleAdmin {
		return nil, deny(workflow.KindOrder, order.Status, order.Status, workflow.ReasonGuardFailed, workflow.GuardTrackableStatus)
	}
	if err := checkSellerScope(order, actor, order.Status); err != nil {
		return nil, err
	}
	if order.Status != workflow.OrderProcessing && order.Status != workflow.OrderShipped {
		return nil, deny(workflow.KindOrder, order.Status, order.Status, workflow.ReasonGuardFailed, workflow.GuardTrackableStatus)
	}
	if order.HasTracking() {
		return nil, deny(workflow.KindOrder, order.Status, order.Status, workflow.ReasonGuardFailed, workflow.GuardTrackingAlreadySet)
	}

	order.TrackingNumber = tracking
	if estimatedDelivery != nil {
		eta := estimatedDelivery.UTC()
		order.EstimatedDelivery = &eta
	}

	d := workflow.Decision{
		Allowed: true,
		Next:    order.Status,
		Audit:   workflow.AuditShape{From: order.Status, To: order.Status, ActorRole: actor.Role},
	}
	h, err := commitTransition(ctx, s.store, order, entity.TrackStatus, d, actor, tracking, s.now())
	if err != nil {
		s.logger.Error("Failed to attach tracking", "error", err, "order_id", orderID)
		return nil, err
	}

	s.logger.Info("Tracking attached", "order_id", orderID, "tracking_number", tracking, "actor", actor.ID)
	s.publisher.Publish(ctx, event.NewTransitionEvent(event.TypeTrackingAttached, &order.Entity, h).
		WithPayload("tracking_number", tracking))
	return order, nil
}

// IsInvoiceEligible reports whether an invoice may be rendered for the order
func (s *orderServiceImpl) IsInvoiceEligible(order *entity.Order) bool {
	return entity.IsInvoiceEligible(order)
}

// ListBySeller returns one page of the seller's orders, optionally filtered by status
func (s *orderServiceImpl) ListBySeller(ctx context.Context, sellerID string, statuses []workflow.Status, cursor string, limit int) (*OrderPage, error) {
	if strings.TrimSpace(sellerID) == "" {
		return nil, workflow.NewValidationError("seller_id", "seller is required")
	}
	for _, st := range statuses {
		if !s.machine.IsValid(st) {
			return nil, workflow.NewValidationError("status", fmt.Sprintf("unknown order status %q", st))
		}
	}

	page, err := s.store.QueryByStatus(ctx, port.StatusQuery{
		Kind:     workflow.KindOrder,
		Statuses: statuses,
		SellerID: sellerID,
		Cursor:   cursor,
		Limit:    limit,
	})
	if err != nil {
		s.logger.Error("Failed to list orders", "error", err, "seller_id", sellerID)
		return nil, err
	}

	result := &OrderPage{Orders: make([]*entity.Order, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, item := range page.Items {
		if o, ok := item.(*entity.Order); ok {
			result.Orders = append(result.Orders, o)
		}
	}
	return result, nil
}

// checkSellerScope stops a seller from acting on another seller's order
func checkSellerScope(order *entity.Order, actor entity.Actor, requested workflow.Status) error {
	if actor.Role == workflow.RoleSeller && order.SellerID != actor.ID {
		return deny(workflow.KindOrder, order.Status, requested, workflow.ReasonForbiddenRole, "")
	}
	return nil
}
