package entity

import (
	"strings"
	"time"

	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// CategoryRequestDetails holds the category-request-specific fields
type CategoryRequestDetails struct {
	CategoryName string `json:"category_name"`
	Description  string `json:"description,omitempty"`
	Feedback     string `json:"feedback,omitempty"`
}

// CategoryRequest is a seller's request to add a category to the catalog
type CategoryRequest struct {
	Entity
	CategoryRequestDetails
}

// Details implements WorkflowEntity
func (c *CategoryRequest) Details() interface{} {
	return &c.CategoryRequestDetails
}

// SellerRef implements SellerScoped
func (c *CategoryRequest) SellerRef() string {
	return c.OwnerID
}

// ApprovedCategory is one entry of the shared approved-category catalog
type ApprovedCategory struct {
	NormalizedName    string    `json:"normalized_name"`
	DisplayName       string    `json:"display_name"`
	TotalProductCount int       `json:"total_product_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// CleanCategoryName collapses whitespace, keeping the caller's casing
func CleanCategoryName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// NormalizeCategoryName returns the case-insensitive catalog key
func NormalizeCategoryName(name string) string {
	return strings.ToLower(CleanCategoryName(name))
}

// ValidateCategoryName rejects blank or oversized names
func ValidateCategoryName(name string) error {
	clean := CleanCategoryName(name)
	if clean == "" {
		return workflow.NewValidationError("category_name", "name must not be blank")
	}
	if len(clean) > 100 {
		return workflow.NewValidationError("category_name", "name must be at most 100 characters")
	}
	return nil
}
