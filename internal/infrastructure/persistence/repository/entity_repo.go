package repository

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/persistence/sqlite"
)

// EntityRepository implements port.EntityStore on SQLite
type EntityRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(db *sqlite.DB, logger *zap.Logger) *EntityRepository {
	return &EntityRepository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

const entityColumns = `row_id, id, kind, status, owner_id, version, details, created_at, updated_at`

// Create inserts a new entity at version 1 with its initial history
func (r *EntityRepository) Create(ctx context.Context, e entity.WorkflowEntity) error {
	base := e.Base()
	if !base.Kind.IsValid() {
		return workflow.NewValidationError("kind", fmt.Sprintf("unknown kind %q", base.Kind))
	}
	if base.ID == "" {
		base.ID = uuid.NewString()
	}

	details, err := json.Marshal(e.Details())
	if err != nil {
		return fmt.Errorf("failed to marshal %s details: %w", base.Kind, err)
	}

	now := r.now()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	if base.UpdatedAt.IsZero() {
		base.UpdatedAt = base.CreatedAt
	}

	query := `
		INSERT INTO workflow_entities (
			id, kind, status, owner_id, seller_id, version, details, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)
	`

	err = r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		_, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			base.ID,
			string(base.Kind),
			string(base.Status),
			base.OwnerID,
			sellerRef(e),
			string(details),
			base.CreatedAt,
			base.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return workflow.NewValidationError("id", fmt.Sprintf("entity %s already exists", base.ID))
			}
			return fmt.Errorf("failed to insert entity: %w", err)
		}

		return r.insertHistory(txCtx, base.ID, base.UncommittedHistory())
	})
	if err != nil {
		r.logger.Error("Failed to create entity", zap.String("id", base.ID), zap.String("kind", string(base.Kind)), zap.Error(err))
		return err
	}

	base.Version = 1
	base.MarkCommitted()
	return nil
}

// Load retrieves an entity with its full history
func (r *EntityRepository) Load(ctx context.Context, id string) (entity.WorkflowEntity, error) {
	query := `SELECT ` + entityColumns + ` FROM workflow_entities WHERE id = ?`

	e, _, err := r.scanEntity(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to load entity", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load entity: %w", err)
	}

	histories, err := r.loadHistory(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	base := e.Base()
	base.History = histories[id]
	base.MarkCommitted()

	return e, nil
}

// Save writes status, details and uncommitted history if the stored version matches
func (r *EntityRepository) Save(ctx context.Context, e entity.WorkflowEntity, expectedVersion int64) error {
	base := e.Base()

	details, err := json.Marshal(e.Details())
	if err != nil {
		return fmt.Errorf("failed to marshal %s details: %w", base.Kind, err)
	}

	updatedAt := base.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}

	query := `
		UPDATE workflow_entities
		SET status = ?, details = ?, seller_id = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	err = r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)

		result, err := exec.ExecContext(txCtx, query,
			string(base.Status),
			string(details),
			sellerRef(e),
			updatedAt,
			base.ID,
			expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update entity: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			var exists int
			err := exec.QueryRowContext(txCtx, `SELECT 1 FROM workflow_entities WHERE id = ?`, base.ID).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", workflow.ErrNotFound, base.ID)
			}
			if err != nil {
				return fmt.Errorf("failed to check entity: %w", err)
			}
			return fmt.Errorf("%w: %s at version %d", workflow.ErrVersionConflict, base.ID, expectedVersion)
		}

		if err := r.insertHistory(txCtx, base.ID, base.UncommittedHistory()); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s history already advanced", workflow.ErrVersionConflict, base.ID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, workflow.ErrVersionConflict) {
			r.logger.Error("Failed to save entity", zap.String("id", base.ID), zap.Error(err))
		}
		return err
	}

	base.Version = expectedVersion + 1
	base.MarkCommitted()
	return nil
}

// QueryByStatus returns one keyset-paginated page ordered by insertion
func (r *EntityRepository) QueryByStatus(ctx context.Context, q port.StatusQuery) (*port.Page, error) {
	if !q.Kind.IsValid() {
		return nil, workflow.NewValidationError("kind", fmt.Sprintf("unknown kind %q", q.Kind))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = port.DefaultPageSize
	}
	if limit > port.MaxPageSize {
		limit = port.MaxPageSize
	}

	after, err := decodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}

	where := []string{"kind = ?", "row_id > ?"}
	args := []interface{}{string(q.Kind), after}
	if len(q.Statuses) > 0 {
		placeholders := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if q.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, q.OwnerID)
	}
	if q.SellerID != "" {
		where = append(where, "seller_id = ?")
		args = append(args, q.SellerID)
	}
	args = append(args, limit+1)

	query := `SELECT ` + entityColumns + ` FROM workflow_entities WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY row_id LIMIT ?`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query entities", zap.String("kind", string(q.Kind)), zap.Error(err))
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	page := &port.Page{}
	var ids []string
	var lastRowID int64
	for rows.Next() {
		if len(page.Items) == limit {
			page.NextCursor = encodeCursor(lastRowID)
			break
		}
		e, rowID, err := r.scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		page.Items = append(page.Items, e)
		ids = append(ids, e.Base().ID)
		lastRowID = rowID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}
	rows.Close()

	histories, err := r.loadHistory(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range page.Items {
		base := e.Base()
		base.History = histories[base.ID]
		base.MarkCommitted()
	}

	return page, nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *EntityRepository) scanEntity(row rowScanner) (entity.WorkflowEntity, int64, error) {
	var (
		rowID     int64
		id        string
		kind      string
		status    string
		ownerID   string
		version   int64
		details   string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(&rowID, &id, &kind, &status, &ownerID, &version, &details, &createdAt, &updatedAt); err != nil {
		return nil, 0, err
	}

	e, err := entity.New(workflow.Kind(kind))
	if err != nil {
		return nil, 0, err
	}
	if err := json.Unmarshal([]byte(details), e.Details()); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal %s details for %s: %w", kind, id, err)
	}

	base := e.Base()
	base.ID = id
	base.Status = workflow.Status(status)
	base.OwnerID = ownerID
	base.Version = version
	base.CreatedAt = createdAt
	base.UpdatedAt = updatedAt

	return e, rowID, nil
}

func (r *EntityRepository) insertHistory(ctx context.Context, entityID string, entries []entity.HistoryEntry) error {
	query := `
		INSERT INTO workflow_history (
			entity_id, seq, track, from_status, to_status, actor_role, actor_id, feedback, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := r.db.Executor(ctx)
	for _, h := range entries {
		_, err := exec.ExecContext(ctx, query,
			entityID,
			h.Seq,
			string(h.Track),
			string(h.FromStatus),
			string(h.ToStatus),
			string(h.ActorRole),
			h.ActorID,
			h.Feedback,
			h.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert history seq %d: %w", h.Seq, err)
		}
	}
	return nil
}

func (r *EntityRepository) loadHistory(ctx context.Context, ids []string) (map[string][]entity.HistoryEntry, error) {
	result := make(map[string][]entity.HistoryEntry, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT entity_id, seq, track, from_status, to_status, actor_role, actor_id, feedback, created_at
		FROM workflow_history
		WHERE entity_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY entity_id, seq
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load history", zap.Int("entities", len(ids)), zap.Error(err))
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entityID string
			h        entity.HistoryEntry
			track    string
			from     string
			to       string
			role     string
		)
		if err := rows.Scan(&entityID, &h.Seq, &track, &from, &to, &role, &h.ActorID, &h.Feedback, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		h.Track = entity.Track(track)
		h.FromStatus = workflow.Status(from)
		h.ToStatus = workflow.Status(to)
		h.ActorRole = workflow.Role(role)
		result[entityID] = append(result[entityID], h)
	}

	return result, rows.Err()
}

func sellerRef(e entity.WorkflowEntity) string {
	if s, ok := e.(entity.SellerScoped); ok {
		return s.SellerRef()
	}
	return ""
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

const cursorPrefix = "r:"

func encodeCursor(rowID int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(rowID, 10)))
}

func decodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || !strings.HasPrefix(string(raw), cursorPrefix) {
		return 0, workflow.NewValidationError("cursor", "malformed cursor")
	}
	rowID, err := strconv.ParseInt(strings.TrimPrefix(string(raw), cursorPrefix), 10, 64)
	if err != nil || rowID < 0 {
		return 0, workflow.NewValidationError("cursor", "malformed cursor")
	}
	return rowID, nil
}

// Verify interface compliance
var _ port.EntityStore = (*EntityRepository)(nil)
