package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
)

// RegisterSellerRequest opens a seller profile. SellerID is only honoured for admins.
type RegisterSellerRequest struct {
	SellerID     string `json:"seller_id"`
	StoreName    string `json:"store_name"`
	ContactEmail string `json:"contact_email"`
}

// CulturalApprovalRequest records a cultural review outcome
type CulturalApprovalRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Feedback string `json:"feedback"`
}

// RegisterSeller handles POST /api/v1/sellers
func (h *Handlers) RegisterSeller(c *gin.Context) {
	var req RegisterSellerRequest
	if !h.bind(c, &req) {
		return
	}

	profile := &entity.SellerProfile{
		Entity: entity.Entity{OwnerID: req.SellerID},
		SellerDetails: entity.SellerDetails{
			StoreName:    req.StoreName,
			ContactEmail: req.ContactEmail,
		},
	}

	created, err := h.deps.Sellers.Register(c.Request.Context(), profile, mustActor(c))
	if err != nil {
		h.respondError(c, "register_seller", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: created})
}

// GetSeller handles GET /api/v1/sellers/:id
func (h *Handlers) GetSeller(c *gin.Context) {
	if err := sameSellerOrAdmin(mustActor(c), c.Param("id")); err != nil {
		h.respondError(c, "get_seller", err)
		return
	}

	profile, err := h.deps.Sellers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "get_seller", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: profile})
}

// ApproveSeller handles POST /api/v1/sellers/:id/approve
func (h *Handlers) ApproveSeller(c *gin.Context) {
	h.sellerTransition(c, "approve_seller", func(sellerID, _ string) (*entity.SellerProfile, error) {
		return h.deps.Sellers.Approve(c.Request.Context(), sellerID, mustActor(c))
	})
}

// ActivateSeller handles POST /api/v1/sellers/:id/activate
func (h *Handlers) ActivateSeller(c *gin.Context) {
	h.sellerTransition(c, "activate_seller", func(sellerID, _ string) (*entity.SellerProfile, error) {
		return h.deps.Sellers.Activate(c.Request.Context(), sellerID, mustActor(c))
	})
}

// RejectSeller handles POST /api/v1/sellers/:id/reject
func (h *Handlers) RejectSeller(c *gin.Context) {
	h.sellerTransition(c, "reject_seller", func(sellerID, feedback string) (*entity.SellerProfile, error) {
		return h.deps.Sellers.Reject(c.Request.Context(), sellerID, feedback, mustActor(c))
	})
}

// SuspendSeller handles POST /api/v1/sellers/:id/suspend
func (h *Handlers) SuspendSeller(c *gin.Context) {
	h.sellerTransition(c, "suspend_seller", func(sellerID, feedback string) (*entity.SellerProfile, error) {
		return h.deps.Sellers.Suspend(c.Request.Context(), sellerID, feedback, mustActor(c))
	})
}

// SubmitCulturalApproval handles POST /api/v1/sellers/:id/cultural-approval
func (h *Handlers) SubmitCulturalApproval(c *gin.Context) {
	var req CulturalApprovalRequest
	if !h.bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var profile *entity.SellerProfile
	err := h.retry(ctx, "cultural_approval", func() error {
		var err error
		profile, err = h.deps.Sellers.SubmitCulturalApproval(ctx, c.Param("id"), *req.Approved, req.Feedback, mustActor(c))
		return err
	})
	if err != nil {
		h.respondError(c, "cultural_approval", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: profile})
}

// SellerNotifications handles GET /api/v1/sellers/:id/notifications
func (h *Handlers) SellerNotifications(c *gin.Context) {
	sellerID := c.Param("id")
	if err := sameSellerOrAdmin(mustActor(c), sellerID); err != nil {
		h.respondError(c, "seller_notifications", err)
		return
	}

	feed, err := h.deps.Notifications.Summarize(c.Request.Context(), sellerID)
	if err != nil {
		h.respondError(c, "seller_notifications", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: feed})
}

// sellerTransition binds the optional feedback body and runs op with retries
func (h *Handlers) sellerTransition(c *gin.Context, name string, op func(sellerID, feedback string) (*entity.SellerProfile, error)) {
	var req FeedbackRequest
	if !h.bindOptional(c, &req) {
		return
	}

	var profile *entity.SellerProfile
	err := h.retry(c.Request.Context(), name, func() error {
		var err error
		profile, err = op(c.Param("id"), req.Feedback)
		return err
	})
	if err != nil {
		h.respondError(c, name, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: profile})
}
