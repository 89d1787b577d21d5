package service

import (
	"context"
	"fmt"

	"github.com/garyjia/marketplace-workflow/internal/application/dispatcher"
	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/event"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// CreateDirectResult reports how many names a bulk creation added to the catalog
type CreateDirectResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// CategoryService drives category requests and the approved-category catalog
type CategoryService interface {
	// Submit opens a pending request for a new category
	Submit(ctx context.Context, name, description string, actor entity.Actor) (*entity.CategoryRequest, error)

	Get(ctx context.Context, requestID string) (*entity.CategoryRequest, error)

	// Approve closes the request and upserts its name into the catalog atomically
	Approve(ctx context.Context, requestID, feedback string, actor entity.Actor) (*entity.CategoryRequest, error)

	// Reject closes the request; feedback is mandatory
	Reject(ctx context.Context, requestID, feedback string, actor entity.Actor) (*entity.CategoryRequest, error)

	// CreateDirect upserts names into the catalog without a request
	CreateDirect(ctx context.Context, names []string, actor entity.Actor) (*CreateDirectResult, error)

	ListCatalog(ctx context.Context) ([]*entity.ApprovedCategory, error)
}

type categoryServiceImpl struct {
	store     port.EntityStore
	catalog   port.CategoryCatalog
	txManager port.TransactionManager
	machine   *workflow.Machine
	publisher dispatcher.Publisher
	logger    Logger
	now       Clock
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	store port.EntityStore,
	catalog port.CategoryCatalog,
	txManager port.TransactionManager,
	registry *workflow.Registry,
	publisher dispatcher.Publisher,
	logger Logger,
) CategoryService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &categoryServiceImpl{
		store:     store,
		catalog:   catalog,
		txManager: txManager,
		machine:   registry.MustMachine(workflow.KindCategoryRequest),
		publisher: publisher,
		logger:    logger,
		now:       systemClock,
	}
}

// Submit creates a pending category request owned by the actor
func (s *categoryServiceImpl) Submit(ctx context.Context, name, description string, actor entity.Actor) (*entity.CategoryRequest, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != workflow.RoleSeller && actor.Role != workflow.RoleAdmin {
		return nil, fmt.Errorf("%w: %s may not request categories", workflow.ErrForbiddenRole, actor.Role)
	}
	if err := entity.ValidateCategoryName(name); err != nil {
		return nil, err
	}

	now := s.now()
	request := &entity.CategoryRequest{
		Entity: entity.Entity{
			Kind:      workflow.KindCategoryRequest,
			Status:    s.machine.Initial(),
			OwnerID:   actor.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		CategoryRequestDetails: entity.CategoryRequestDetails{
			CategoryName: entity.CleanCategoryName(name),
			Description:  cleanFeedback(description),
		},
	}

	if err := s.store.Create(ctx, request); err != nil {
		s.logger.Error("Failed to submit category request", "error", err, "name", request.CategoryName)
		return nil, err
	}

	s.logger.Info("Category requested", "request_id", request.ID, "name", request.CategoryName, "actor", actor.ID)
	s.publisher.Publish(ctx, event.NewEvent(event.TypeEntityCreated, &request.Entity, map[string]interface{}{
		"category_name": request.CategoryName,
	}))
	return request, nil
}

// Get retrieves a category request with its history
func (s *categoryServiceImpl) Get(ctx context.Context, requestID string) (*entity.CategoryRequest, error) {
	return loadAs[*entity.CategoryRequest](ctx, s.store, requestID, workflow.KindCategoryRequest)
}

// Approve moves the request to approved and upserts the catalog in the same transaction
func (s *categoryServiceImpl) Approve(ctx context.Context, requestID, feedback string, actor entity.Actor) (*entity.CategoryRequest, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	request, d, err := s.decide(ctx, requestID, workflow.CategoryApproved, actor)
	if err != nil {
		return nil, err
	}

	var (
		h        entity.HistoryEntry
		category *entity.ApprovedCategory
		created  bool
	)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		category, created, err = s.catalog.Upsert(txCtx, request.CategoryName)
		if err != nil {
			return fmt.Errorf("upsert catalog: %w", err)
		}

		if fb := cleanFeedback(feedback); fb != "" {
			request.Feedback = fb
		}
		h, err = commitTransition(txCtx, s.store, request, entity.TrackStatus, d, actor, feedback, s.now())
		return err
	})
	if err != nil {
		s.logger.Error("Failed to approve category request", "error", err, "request_id", requestID)
		return nil, err
	}

	s.logger.Info("Category request approved",
		"request_id", requestID, "name", category.DisplayName, "catalog_created", created, "actor", actor.ID)
	s.publisher.Publish(ctx, event.NewTransitionEvent(event.TypeStatusChanged, &request.Entity, h))
	if created {
		s.publisher.Publish(ctx, event.NewCatalogEvent(category, request.ID, actor.ID))
	}
	return request, nil
}

// Reject moves the request to rejected with the operator's reason
func (s *categoryServiceImpl) Reject(ctx context.Context, requestID, feedback string, actor entity.Actor) (*entity.CategoryRequest, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	request, d, err := s.decide(ctx, requestID, workflow.CategoryRejected, actor)
	if err != nil {
		return nil, err
	}

	request.Feedback = cleanFeedback(feedback)
	h, err := commitTransition(ctx, s.store, request, entity.TrackStatus, d, actor, feedback, s.now())
	if err != nil {
		s.logger.Error("Failed to reject category request", "error", err, "request_id", requestID)
		return nil, err
	}

	s.logger.Info("Category request rejected", "request_id", requestID, "actor", actor.ID)
	s.publisher.Publish(ctx, event.NewTransitionEvent(event.TypeStatusChanged, &request.Entity, h))
	return request, nil
}

func (s *categoryServiceImpl) decide(
	ctx context.Context,
	requestID string,
	requested workflow.Status,
	actor entity.Actor,
) (*entity.CategoryRequest, workflow.Decision, error) {
	request, err := loadAs[*entity.CategoryRequest](ctx, s.store, requestID, workflow.KindCategoryRequest)
	if err != nil {
		return nil, workflow.Decision{}, err
	}

	d := s.machine.Evaluate(request.Status, requested, actor.Role, request)
	if !d.Allowed {
		s.logger.Info("Category transition denied", "request_id", requestID, "from", request.Status, "to", requested, "reason", d.Reason)
		return nil, d, d.Err()
	}
	return request, d, nil
}

// CreateDirect upserts every name; names already present in the input or the catalog are skipped
func (s *categoryServiceImpl) CreateDirect(ctx context.Context, names []string, actor entity.Actor) (*CreateDirectResult, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != workflow.RoleAdmin {
		return nil, fmt.Errorf("%w: only ADMIN may create categories directly", workflow.ErrForbiddenRole)
	}
	if len(names) == 0 {
		return nil, workflow.NewValidationError("names", "at least one name is required")
	}

	for i, name := range names {
		if err := entity.ValidateCategoryName(name); err != nil {
			return nil, workflow.NewValidationError("names", fmt.Sprintf("entry %d: %v", i, err))
		}
	}

	result := &CreateDirectResult{}
	var added []*entity.ApprovedCategory
	seen := make(map[string]bool, len(names))

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, name := range names {
			key := entity.NormalizeCategoryName(name)
			if seen[key] {
				result.Skipped++
				continue
			}
			seen[key] = true

			category, created, err := s.catalog.Upsert(txCtx, name)
			if err != nil {
				return fmt.Errorf("upsert %q: %w", name, err)
			}
			if created {
				result.Created++
				added = append(added, category)
			} else {
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create categories", "error", err, "count", len(names))
		return nil, err
	}

	s.logger.Info("Categories created directly", "created", result.Created, "skipped", result.Skipped, "actor", actor.ID)
	for _, c := range added {
		s.publisher.Publish(ctx, event.NewCatalogEvent(c, "", actor.ID))
	}
	return result, nil
}

// ListCatalog returns the approved categories
func (s *categoryServiceImpl) ListCatalog(ctx context.Context) ([]*entity.ApprovedCategory, error) {
	categories, err := s.catalog.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list catalog", "error", err)
		return nil, err
	}
	return categories, nil
}
