package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps       Dependencies
	maxRetries int
	logger     Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, maxRetries int, logger Logger) *Handlers {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Handlers{
		deps:       deps,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Version   string      `json:"version"`
	Details   interface{} `json:"details,omitempty"`
}

// TransitionsResponse is the static graph of a kind, plus the statuses the
// caller may move to from a given status when one is asked for
type TransitionsResponse struct {
	Table     workflow.Table    `json:"table"`
	Terminal  []workflow.Status `json:"terminal"`
	From      workflow.Status   `json:"from,omitempty"`
	Available []workflow.Status `json:"available,omitempty"`
}

// ProductCountRequest is sent by the product catalog collaborator
type ProductCountRequest struct {
	Count *int `json:"count" binding:"required"`
}

// FeedbackRequest carries the optional or mandatory reviewer feedback
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, details := true, interface{}(nil)
	if h.deps.Health != nil {
		healthy, details = h.deps.Health()
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
		Details:   details,
	}
	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, Response{
		Success: healthy,
		Data:    response,
	})
}

// Transitions handles GET /api/v1/workflows/:kind/transitions
func (h *Handlers) Transitions(c *gin.Context) {
	kind := workflow.Kind(strings.ToUpper(c.Param("kind")))
	machine, ok := h.deps.Registry.Machine(kind)
	if !ok {
		h.respondError(c, "transitions", fmt.Errorf("%w: unknown workflow kind %q", workflow.ErrNotFound, c.Param("kind")))
		return
	}

	table := machine.TransitionTable()
	response := TransitionsResponse{
		Table:    table,
		Terminal: table.Terminal(),
	}

	if from := c.Query("from"); from != "" {
		status := workflow.Status(from)
		if !machine.IsValid(status) {
			h.respondError(c, "transitions", workflow.NewValidationError("from", fmt.Sprintf("unknown status %q", from)))
			return
		}
		role := workflow.Role(strings.ToUpper(c.Query("role")))
		if role == "" {
			actor, _ := actorFrom(c)
			role = actor.Role
		}
		if !role.IsValid() {
			h.respondError(c, "transitions", workflow.NewValidationError("role", fmt.Sprintf("unknown role %q", role)))
			return
		}
		response.From = status
		response.Available = machine.AvailableTransitions(status, role)
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: response})
}

// SetSellerProductCount handles PUT /api/v1/catalog/sellers/:id/product-count
func (h *Handlers) SetSellerProductCount(c *gin.Context) {
	var req ProductCountRequest
	if !h.bind(c, &req) {
		return
	}

	sellerID := c.Param("id")
	if err := h.deps.ProductCounts.SetSellerProductCount(c.Request.Context(), sellerID, *req.Count); err != nil {
		h.respondError(c, "set_seller_product_count", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"seller_id": sellerID, "count": *req.Count},
	})
}

// SetCategoryProductCount handles PUT /api/v1/catalog/categories/:name/product-count
func (h *Handlers) SetCategoryProductCount(c *gin.Context) {
	var req ProductCountRequest
	if !h.bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	name := c.Param("name")
	if err := h.deps.Catalog.SetProductCount(ctx, name, *req.Count); err != nil {
		h.respondError(c, "set_category_product_count", err)
		return
	}

	category, err := h.deps.Catalog.Get(ctx, name)
	if err != nil {
		h.respondError(c, "set_category_product_count", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: category})
}

// bind decodes the JSON body, writing a 400 on failure
func (h *Handlers) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, "bind", workflow.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// bindOptional decodes the JSON body if there is one
func (h *Handlers) bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bind(c, req)
}

// mustActor returns the authenticated actor; the auth middleware guarantees one
func mustActor(c *gin.Context) entity.Actor {
	actor, _ := actorFrom(c)
	return actor
}

// sameSellerOrAdmin rejects sellers acting on another seller's resources
func sameSellerOrAdmin(actor entity.Actor, sellerID string) error {
	switch actor.Role {
	case workflow.RoleAdmin:
		return nil
	case workflow.RoleSeller:
		if actor.ID == sellerID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s may not access seller %s", workflow.ErrForbiddenRole, actor.Role, actor.ID, sellerID)
}
