package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// CategoryRequestBody asks for a new catalog category
type CategoryRequestBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateDirectRequest lists names an admin adds to the catalog
type CreateDirectRequest struct {
	Names []string `json:"names"`
}

// SubmitCategoryRequest handles POST /api/v1/categories/requests
func (h *Handlers) SubmitCategoryRequest(c *gin.Context) {
	var req CategoryRequestBody
	if !h.bind(c, &req) {
		return
	}

	request, err := h.deps.Categories.Submit(c.Request.Context(), req.Name, req.Description, mustActor(c))
	if err != nil {
		h.respondError(c, "submit_category", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: request})
}

// GetCategoryRequest handles GET /api/v1/categories/requests/:id
func (h *Handlers) GetCategoryRequest(c *gin.Context) {
	request, err := h.deps.Categories.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "get_category_request", err)
		return
	}

	// Requests are visible to the submitting seller and to admins
	actor := mustActor(c)
	if actor.Role != workflow.RoleAdmin && request.OwnerID != actor.ID {
		h.respondError(c, "get_category_request",
			fmt.Errorf("%w: %s %s may not read category request %s", workflow.ErrForbiddenRole, actor.Role, actor.ID, request.ID))
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: request})
}

// ApproveCategoryRequest handles POST /api/v1/categories/requests/:id/approve
func (h *Handlers) ApproveCategoryRequest(c *gin.Context) {
	h.categoryDecision(c, "approve_category", func(id, feedback string) (*entity.CategoryRequest, error) {
		return h.deps.Categories.Approve(c.Request.Context(), id, feedback, mustActor(c))
	})
}

// RejectCategoryRequest handles POST /api/v1/categories/requests/:id/reject
func (h *Handlers) RejectCategoryRequest(c *gin.Context) {
	h.categoryDecision(c, "reject_category", func(id, feedback string) (*entity.CategoryRequest, error) {
		return h.deps.Categories.Reject(c.Request.Context(), id, feedback, mustActor(c))
	})
}

// CreateCategoriesDirect handles POST /api/v1/categories/create-direct
func (h *Handlers) CreateCategoriesDirect(c *gin.Context) {
	var req CreateDirectRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.deps.Categories.CreateDirect(c.Request.Context(), req.Names, mustActor(c))
	if err != nil {
		h.respondError(c, "create_categories_direct", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ListCategories handles GET /api/v1/categories
func (h *Handlers) ListCategories(c *gin.Context) {
	categories, err := h.deps.Categories.ListCatalog(c.Request.Context())
	if err != nil {
		h.respondError(c, "list_categories", err)
		return
	}
	if categories == nil {
		categories = []*entity.ApprovedCategory{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: categories})
}

func (h *Handlers) categoryDecision(c *gin.Context, name string, op func(id, feedback string) (*entity.CategoryRequest, error)) {
	var req FeedbackRequest
	if !h.bindOptional(c, &req) {
		return
	}

	var request *entity.CategoryRequest
	err := h.retry(c.Request.Context(), name, func() error {
		var err error
		request, err = op(c.Param("id"), req.Feedback)
		return err
	})
	if err != nil {
		h.respondError(c, name, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: request})
}
