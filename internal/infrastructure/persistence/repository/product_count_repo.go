package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/persistence/sqlite"
)

// ProductCountRepository implements port.ProductCounts on SQLite
type ProductCountRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewProductCountRepository creates a new product count repository
func NewProductCountRepository(db *sqlite.DB, logger *zap.Logger) *ProductCountRepository {
	return &ProductCountRepository{db: db, logger: logger}
}

// SellerProductCount returns the seller's uploaded product count; unknown sellers have none
func (r *ProductCountRepository) SellerProductCount(ctx context.Context, sellerID string) (int, error) {
	var count int
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT product_count FROM seller_product_counts WHERE seller_id = ?`, sellerID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		r.logger.Error("Failed to get seller product count", zap.String("seller_id", sellerID), zap.Error(err))
		return 0, fmt.Errorf("failed to get seller product count: %w", err)
	}
	return count, nil
}

// SetSellerProductCount records the count reported by the catalog collaborator
func (r *ProductCountRepository) SetSellerProductCount(ctx context.Context, sellerID string, count int) error {
	if sellerID == "" {
		return workflow.NewValidationError("seller_id", "seller is required")
	}
	if count < 0 {
		return workflow.NewValidationError("product_count", "count must not be negative")
	}

	query := `
		INSERT INTO seller_product_counts (seller_id, product_count, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(seller_id) DO UPDATE SET product_count = excluded.product_count, updated_at = excluded.updated_at
	`

	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, sellerID, count, time.Now().UTC()); err != nil {
		r.logger.Error("Failed to set seller product count", zap.String("seller_id", sellerID), zap.Error(err))
		return fmt.Errorf("failed to set seller product count: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.ProductCounts = (*ProductCountRepository)(nil)
