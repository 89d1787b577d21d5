package port

import (
	"context"
	"iter"

	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// DefaultPageSize is used when a query does not set a limit
const DefaultPageSize = 50

// MaxPageSize caps a single page
const MaxPageSize = 500

// StatusQuery selects entities of one kind by status and optional owner or seller
type StatusQuery struct {
	Kind workflow.Kind
	// Statuses filters by status; empty means every status
	Statuses []workflow.Status
	OwnerID  string
	SellerID string
	// Cursor resumes after the last entity of a previous page
	Cursor string
	Limit  int
}

// Page is one slice of a StatusQuery result
type Page struct {
	Items []entity.WorkflowEntity
	// NextCursor is empty on the last page
	NextCursor string
}

// EntityStore persists workflow entities with optimistic concurrency
type EntityStore interface {
	// Create inserts a new entity at version 1 together with its initial history
	Create(ctx context.Context, e entity.WorkflowEntity) error

	// Load returns the entity with its full history, or workflow.ErrNotFound
	Load(ctx context.Context, id string) (entity.WorkflowEntity, error)

	// Save writes the entity and its uncommitted history if the stored version
	// equals expectedVersion, otherwise it returns workflow.ErrVersionConflict.
	// On success the entity's Version is incremented.
	Save(ctx context.Context, e entity.WorkflowEntity, expectedVersion int64) error

	// QueryByStatus returns one page of matching entities
	QueryByStatus(ctx context.Context, q StatusQuery) (*Page, error)
}

// CategoryCatalog is the shared approved-category catalog
type CategoryCatalog interface {
	// Upsert inserts the category unless an entry with the same normalized name
	// exists. It reports whether a new entry was created.
	Upsert(ctx context.Context, displayName string) (*entity.ApprovedCategory, bool, error)

	// Get returns the entry for a name (case-insensitive), or workflow.ErrNotFound
	Get(ctx context.Context, name string) (*entity.ApprovedCategory, error)

	// List returns every entry ordered by display name
	List(ctx context.Context) ([]*entity.ApprovedCategory, error)

	// SetProductCount records the catalog collaborator's product count for a category
	SetProductCount(ctx context.Context, name string, count int) error
}

// ProductCounts exposes the product counts owned by the catalog collaborator
type ProductCounts interface {
	// SellerProductCount returns how many products a seller has uploaded
	SellerProductCount(ctx context.Context, sellerID string) (int, error)

	// SetSellerProductCount records the count reported by the catalog collaborator
	SetSellerProductCount(ctx context.Context, sellerID string, count int) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Entities lazily walks every page of a query. The sequence can be ranged
// over more than once; each range restarts from q.Cursor.
func Entities(ctx context.Context, store EntityStore, q StatusQuery) iter.Seq2[entity.WorkflowEntity, error] {
	return func(yield func(entity.WorkflowEntity, error) bool) {
		query := q
		for {
			page, err := store.QueryByStatus(ctx, query)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
			if page.NextCursor == "" {
				return
			}
			query.Cursor = page.NextCursor
		}
	}
}
