package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/persistence/sqlite"
)

// CatalogRepository implements port.CategoryCatalog on SQLite
type CatalogRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewCatalogRepository creates a new approved-category catalog repository
func NewCatalogRepository(db *sqlite.DB, logger *zap.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Upsert inserts the category unless the normalized name already exists.
// The insert-or-ignore is a single statement, so concurrent approvals of the
// same new name cannot both create an entry.
func (r *CatalogRepository) Upsert(ctx context.Context, displayName string) (*entity.ApprovedCategory, bool, error) {
	if err := entity.ValidateCategoryName(displayName); err != nil {
		return nil, false, err
	}

	clean := entity.CleanCategoryName(displayName)
	key := entity.NormalizeCategoryName(displayName)
	now := r.now()

	query := `
		INSERT INTO approved_categories (normalized_name, display_name, total_product_count, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT(normalized_name) DO NOTHING
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, key, clean, now, now)
	if err != nil {
		r.logger.Error("Failed to upsert category", zap.String("name", clean), zap.Error(err))
		return nil, false, fmt.Errorf("failed to upsert category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	category, err := r.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}

	return category, affected == 1, nil
}

// Get returns the catalog entry for a name, matched case-insensitively
func (r *CatalogRepository) Get(ctx context.Context, name string) (*entity.ApprovedCategory, error) {
	query := `
		SELECT normalized_name, display_name, total_product_count, created_at
		FROM approved_categories
		WHERE normalized_name = ?
	`

	var c entity.ApprovedCategory
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, entity.NormalizeCategoryName(name)).Scan(
		&c.NormalizedName,
		&c.DisplayName,
		&c.TotalProductCount,
		&c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %q", workflow.ErrNotFound, name)
	}
	if err != nil {
		r.logger.Error("Failed to get category", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &c, nil
}

// List returns every approved category ordered by display name
func (r *CatalogRepository) List(ctx context.Context) ([]*entity.ApprovedCategory, error) {
	query := `
		SELECT normalized_name, display_name, total_product_count, created_at
		FROM approved_categories
		ORDER BY display_name COLLATE NOCASE
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*entity.ApprovedCategory{}
	for rows.Next() {
		var c entity.ApprovedCategory
		if err := rows.Scan(&c.NormalizedName, &c.DisplayName, &c.TotalProductCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}

	return categories, rows.Err()
}

// SetProductCount records the catalog collaborator's count for an existing category
func (r *CatalogRepository) SetProductCount(ctx context.Context, name string, count int) error {
	if count < 0 {
		return workflow.NewValidationError("total_product_count", "count must not be negative")
	}

	query := `UPDATE approved_categories SET total_product_count = ?, updated_at = ? WHERE normalized_name = ?`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, count, r.now(), entity.NormalizeCategoryName(name))
	if err != nil {
		r.logger.Error("Failed to set category product count", zap.String("name", name), zap.Error(err))
		return fmt.Errorf("failed to set category product count: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: category %q", workflow.ErrNotFound, name)
	}

	return nil
}

// Verify interface compliance
var _ port.CategoryCatalog = (*CatalogRepository)(nil)
