package entity

import (
	"strings"

	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// SellerDetails holds the seller-profile-specific fields
type SellerDetails struct {
	StoreName              string          `json:"store_name"`
	ContactEmail           string          `json:"contact_email,omitempty"`
	ProductCount           int             `json:"product_count"`
	CulturalApprovalStatus workflow.Status `json:"cultural_approval_status"`
	CulturalFeedback       string          `json:"cultural_feedback,omitempty"`
}

// SellerProfile is a seller going through onboarding. OwnerID is the seller's own id.
type SellerProfile struct {
	Entity
	SellerDetails
}

// Details implements WorkflowEntity
func (s *SellerProfile) Details() interface{} {
	return &s.SellerDetails
}

// SellerRef implements SellerScoped
func (s *SellerProfile) SellerRef() string {
	return s.OwnerID
}

// UploadedProducts implements workflow.UploadedProductsReporter
func (s *SellerProfile) UploadedProducts() int {
	return s.ProductCount
}

// Validate checks the registration fields
func (s *SellerProfile) Validate() error {
	if strings.TrimSpace(s.OwnerID) == "" {
		return workflow.NewValidationError("owner_id", "seller is required")
	}
	if strings.TrimSpace(s.StoreName) == "" {
		return workflow.NewValidationError("store_name", "store name is required")
	}
	return nil
}
