package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/marketplace-workflow/internal/application/dispatcher"
	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/event"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
	"github.com/garyjia/marketplace-workflow/pkg/utils"
)

// SellerService drives seller onboarding and the cultural review sub-flow
type SellerService interface {
	// Register creates a pending, unreviewed seller profile keyed by the seller's id
	Register(ctx context.Context, profile *entity.SellerProfile, actor entity.Actor) (*entity.SellerProfile, error)

	Get(ctx context.Context, sellerID string) (*entity.SellerProfile, error)

	// Approve and Activate take the same guarded pending -> active edge
	Approve(ctx context.Context, sellerID string, actor entity.Actor) (*entity.SellerProfile, error)
	Activate(ctx context.Context, sellerID string, actor entity.Actor) (*entity.SellerProfile, error)

	Reject(ctx context.Context, sellerID, feedback string, actor entity.Actor) (*entity.SellerProfile, error)
	Suspend(ctx context.Context, sellerID, feedback string, actor entity.Actor) (*entity.SellerProfile, error)

	// SubmitCulturalApproval records a revisable cultural review outcome
	SubmitCulturalApproval(ctx context.Context, sellerID string, approved bool, feedback string, actor entity.Actor) (*entity.SellerProfile, error)
}

type sellerServiceImpl struct {
	store     port.EntityStore
	counts    port.ProductCounts
	machine   *workflow.Machine
	cultural  *workflow.Machine
	publisher dispatcher.Publisher
	logger    Logger
	now       Clock
}

// NewSellerService creates a new SellerService
func NewSellerService(
	store port.EntityStore,
	counts port.ProductCounts,
	registry *workflow.Registry,
	publisher dispatcher.Publisher,
	logger Logger,
) SellerService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &sellerServiceImpl{
		store:     store,
		counts:    counts,
		machine:   registry.MustMachine(workflow.KindSeller),
		cultural:  registry.MustMachine(workflow.KindCulturalApproval),
		publisher: publisher,
		logger:    logger,
		now:       systemClock,
	}
}

// Register stores a new seller profile
func (s *sellerServiceImpl) Register(ctx context.Context, profile *entity.SellerProfile, actor entity.Actor) (*entity.SellerProfile, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, workflow.NewValidationError("profile", "profile is required")
	}

	switch actor.Role {
	case workflow.RoleSeller:
		if profile.OwnerID != "" && profile.OwnerID != actor.ID {
			return nil, fmt.Errorf("%w: sellers may only register themselves", workflow.ErrForbiddenRole)
		}
		profile.OwnerID = actor.ID
	case workflow.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: %s may not register sellers", workflow.ErrForbiddenRole, actor.Role)
	}

	profile.StoreName = strings.TrimSpace(profile.StoreName)
	profile.ContactEmail = strings.TrimSpace(profile.ContactEmail)
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if profile.ContactEmail != "" {
		if err := utils.ValidateEmail(profile.ContactEmail); err != nil {
			return nil, workflow.NewValidationError("contact_email", err.Error())
		}
	}

	now := s.now()
	profile.ID = profile.OwnerID
	profile.Kind = workflow.KindSeller
	profile.Status = s.machine.Initial()
	profile.CulturalApprovalStatus = s.cultural.Initial()
	profile.CulturalFeedback = ""
	profile.ProductCount = 0
	profile.Version = 0
	profile.History = nil
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if err := s.store.Create(ctx, profile); err != nil {
		s.logger.Error("Failed to register seller", "error", err, "seller_id", profile.OwnerID)
		return nil, err
	}

	s.logger.Info("Seller registered", "seller_id", profile.ID, "store_name", profile.StoreName)
	s.publisher.Publish(ctx, event.NewEvent(event.TypeEntityCreated, &profile.Entity, map[string]interface{}{
		"store_name": profile.StoreName,
	}))
	return profile, nil
}

// Get retrieves a seller profile with its history
func (s *sellerServiceImpl) Get(ctx context.Context, sellerID string) (*entity.SellerProfile, error) {
	return loadAs[*entity.SellerProfile](ctx, s.store, sellerID, workflow.KindSeller)
}

// Approve activates a pending seller once enough products are uploaded
func (s *sellerServiceImpl) Approve(ctx context.Context, sellerID string, actor entity.Actor) (*entity.SellerProfile, error) {
	return s.activate(ctx, sellerID, actor)
}

// Activate is an alias of Approve
func (s *sellerServiceImpl) Activate(ctx context.Context, sellerID string, actor entity.Actor) (*entity.SellerProfile, error) {
	return s.activate(ctx, sellerID, actor)
}

func (s *sellerServiceImpl) activate(ctx context.Context, sellerID string, actor entity.Actor) (*entity.SellerProfile, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	profile, err := loadAs[*entity.SellerProfile](ctx, s.store, sellerID, workflow.KindSeller)
	if err != nil {
		return nil, err
	}

	// The catalog collaborator owns the count; read it at decision time
	count, err := s.counts.SellerProductCount(ctx, profile.OwnerID)
	if err != nil {
		s.logger.Error("Failed to read product count", "error", err, "seller_id", sellerID)
		return nil, fmt.Errorf("read product count: %w", err)
	}
	profile.ProductCount = count

	return s.transition(ctx, profile, workflow.SellerActive, "", actor)
}

// Reject closes a pending application
func (s *sellerServiceImpl) Reject(ctx context.Context, sellerID, feedback string, actor entity.Actor) (*entity.SellerProfile, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	profile, err := loadAs[*entity.SellerProfile](ctx, s.store, sellerID, workflow.KindSeller)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, profile, workflow.SellerRejected, feedback, actor)
}

// Suspend takes an active seller offline; feedback is required
func (s *sellerServiceImpl) Suspend(ctx context.Context, sellerID, feedback string, actor entity.Actor) (*entity.SellerProfile, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	profile, err := loadAs[*entity.SellerProfile](ctx, s.store, sellerID, workflow.KindSeller)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, profile, workflow.SellerSuspended, feedback, actor)
}

func (s *sellerServiceImpl) transition(
	ctx context.Context,
	profile *entity.SellerProfile,
	requested workflow.Status,
	feedback string,
	actor entity.Actor,
) (*entity.SellerProfile, error) {
	d := s.machine.Evaluate(profile.Status, requested, actor.Role, profile)
	if !d.Allowed {
		s.logger.Info("Seller transition denied",
			"seller_id", profile.ID, "from", profile.Status, "to", requested, "reason", d.Reason, "guard", d.Guard)
		return nil, d.Err()
	}

	h, err := commitTransition(ctx, s.store, profile, entity.TrackStatus, d, actor, feedback, s.now())
	if err != nil {
		s.logger.Error("Failed to save seller transition", "error", err, "seller_id", profile.ID, "to", requested)
		return nil, err
	}

	s.logger.Info("Seller status updated", "seller_id", profile.ID, "from", h.FromStatus, "to", h.ToStatus, "actor", actor.ID)
	s.publisher.Publish(ctx, event.NewTransitionEvent(event.TypeStatusChanged, &profile.Entity, h))
	return profile, nil
}

// SubmitCulturalApproval sets the cultural review outcome without touching the primary status
func (s *sellerServiceImpl) SubmitCulturalApproval(
	ctx context.Context,
	sellerID string,
	approved bool,
	feedback string,
	actor entity.Actor,
) (*entity.SellerProfile, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	profile, err := loadAs[*entity.SellerProfile](ctx, s.store, sellerID, workflow.KindSeller)
	if err != nil {
		return nil, err
	}

	current := profile.CulturalApprovalStatus
	if current == "" {
		current = s.cultural.Initial()
	}
	requested := workflow.CulturalRejected
	if approved {
		requested = workflow.CulturalApproved
	}

	d := s.cultural.Evaluate(current, requested, actor.Role, profile)
	if !d.Allowed {
		s.logger.Info("Cultural review denied", "seller_id", sellerID, "from", current, "to", requested, "reason", d.Reason)
		return nil, d.Err()
	}

	profile.CulturalApprovalStatus = requested
	profile.CulturalFeedback = cleanFeedback(feedback)

	h, err := commitTransition(ctx, s.store, profile, entity.TrackCulturalApproval, d, actor, feedback, s.now())
	if err != nil {
		s.logger.Error("Failed to save cultural review", "error", err, "seller_id", sellerID)
		return nil, err
	}

	s.logger.Info("Cultural review recorded", "seller_id", sellerID, "outcome", requested, "actor", actor.ID)
	s.publisher.Publish(ctx, event.NewTransitionEvent(event.TypeCulturalReviewed, &profile.Entity, h).
		WithPayload("approved", approved))
	return profile, nil
}
