// base_repository.go implements the generic organization-scoped repository
// shared by every entity in the service. It layers keyset pagination, soft
// deletion, and tenant isolation over plain SQL so the four entity
// repositories contain nothing but their column mappings.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/audittrail/audittrail/internal/apperrors"
	"github.com/audittrail/audittrail/internal/db/models"
	"github.com/audittrail/audittrail/internal/telemetry"
)

// Pagination carries a page request: the page size and, for every page after
// the first, the identifier of the last entity already seen.
type Pagination struct {
	ItemsPerPage int
	LastID       string
}

// Page is one page of results. LastID is the cursor for the next page; it is
// empty once the final page has been reached.
type Page[T any] struct {
	Items  []T
	LastID string
}

// Mapping binds an entity type to its table. ScanRow and InsertArgs keep
// column access explicit — the repository never reflects over entity fields.
type Mapping[T models.Entity] struct {
	// Table is the table name.
	Table string
	// Resource names the entity in error messages ("category", "audit log").
	Resource string
	// Columns is the full select list; ScanRow consumes it in this order.
	Columns []string
	// ScanRow scans one row (Columns order) into a fresh entity.
	ScanRow func(scan func(dest ...interface{}) error) (T, error)
	// InsertColumns are the columns written on create. Timestamps are
	// excluded; the database stamps those.
	InsertColumns []string
	// InsertArgs returns the values for InsertColumns, after identity has
	// been assigned.
	InsertArgs func(T) []interface{}
	// UpdatableColumns restricts which columns a partial update may touch.
	UpdatableColumns []string
}

// BaseRepository is the generic organization-scoped accessor. All reads
// exclude soft-deleted rows; all operations are confined to one organization
// partition.
type BaseRepository[T models.Entity] struct {
	db *sqlx.DB
	m  Mapping[T]
}

// NewBaseRepository binds a mapping to a database handle.
func NewBaseRepository[T models.Entity](db *sqlx.DB, m Mapping[T]) *BaseRepository[T] {
	return &BaseRepository[T]{db: db, m: m}
}

func (r *BaseRepository[T]) selectList() string {
	return strings.Join(r.m.Columns, ", ")
}

// PaginatedFind returns one page of live entities in creation order. When a
// cursor is supplied, results start strictly after the entity it names; a
// cursor that no longer resolves inside the organization yields an empty
// final page. A soft-deleted cursor row remains a valid resume point — the
// row still exists physically even though it is excluded from results.
func (r *BaseRepository[T]) PaginatedFind(ctx context.Context, organizationID int64, p Pagination) (Page[T], error) {
	if p.ItemsPerPage < 1 {
		return Page[T]{}, fmt.Errorf("items per page must be positive, got %d", p.ItemsPerPage)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE organization_id = $1 AND deleted_at IS NULL`,
		r.selectList(), r.m.Table,
	)
	args := []interface{}{organizationID}

	if p.LastID != "" {
		if _, err := uuid.Parse(p.LastID); err != nil {
			// A malformed cursor can never match a row; same outcome as an
			// unknown one.
			return Page[T]{Items: []T{}}, nil
		}
		query += fmt.Sprintf(
			` AND (created_at, id) > (SELECT created_at, id FROM %s WHERE id = $2 AND organization_id = $1)`,
			r.m.Table,
		)
		args = append(args, p.LastID)
	}

	query += fmt.Sprintf(` ORDER BY created_at, id LIMIT $%d`, len(args)+1)
	args = append(args, p.ItemsPerPage+1) // one extra row decides the cursor

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page[T]{}, apperrors.NewStore("paginated find "+r.m.Table, err)
	}
	defer rows.Close()

	items := make([]T, 0, p.ItemsPerPage)
	for rows.Next() {
		item, err := r.m.ScanRow(rows.Scan)
		if err != nil {
			return Page[T]{}, apperrors.NewStore("scan "+r.m.Table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return Page[T]{}, apperrors.NewStore("paginated find "+r.m.Table, err)
	}

	page := Page[T]{Items: items}
	if len(items) > p.ItemsPerPage {
		page.Items = items[:p.ItemsPerPage]
		page.LastID = page.Items[len(page.Items)-1].EntityID()
	}
	return page, nil
}

// Find returns every live entity in the organization, ascending by creation
// order. Unbounded — intended for small reference tables, not audit logs.
func (r *BaseRepository[T]) Find(ctx context.Context, organizationID int64) ([]T, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE organization_id = $1 AND deleted_at IS NULL ORDER BY created_at, id`,
		r.selectList(), r.m.Table,
	)

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, apperrors.NewStore("find "+r.m.Table, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := r.m.ScanRow(rows.Scan)
		if err != nil {
			return nil, apperrors.NewStore("scan "+r.m.Table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStore("find "+r.m.Table, err)
	}

	return items, nil
}

// FindByID returns the live entity with the given identifier, provided it
// belongs to the requested organization. An identifier owned by a different
// organization is reported as an ordinary not-found — the caller cannot tell
// the two cases apart — but the cross-organization hit is counted internally
// for observability.
func (r *BaseRepository[T]) FindByID(ctx context.Context, organizationID int64, id string) (T, error) {
	var zero T

	if _, err := uuid.Parse(id); err != nil {
		return zero, apperrors.NewNotFound(r.m.Resource, id)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1 AND deleted_at IS NULL`,
		r.selectList(), r.m.Table,
	)

	row := r.db.QueryRowContext(ctx, query, id)
	entity, err := r.m.ScanRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, apperrors.NewNotFound(r.m.Resource, id)
		}
		return zero, apperrors.NewStore("find "+r.m.Table+" by id", err)
	}

	if entity.EntityOrganization() != organizationID {
		telemetry.CrossOrganizationLookupsTotal.WithLabelValues(r.m.Resource).Inc()
		slog.Debug("cross-organization lookup rejected",
			"resource", r.m.Resource,
			"id", id,
			"requested_organization", organizationID,
		)
		return zero, apperrors.NewCrossOrganizationNotFound(r.m.Resource, id)
	}

	return entity, nil
}

// Create stamps a fresh identifier and the caller's organization onto the
// entity — any identity already present in the payload is discarded — then
// persists it and returns the stored row with its database-assigned
// timestamps.
func (r *BaseRepository[T]) Create(ctx context.Context, organizationID int64, entity T) (T, error) {
	var zero T

	entity.AssignIdentity(uuid.New().String(), organizationID)

	placeholders := make([]string, len(r.m.InsertColumns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		r.m.Table,
		strings.Join(r.m.InsertColumns, ", "),
		strings.Join(placeholders, ", "),
		r.selectList(),
	)

	row := r.db.QueryRowContext(ctx, query, r.m.InsertArgs(entity)...)
	stored, err := r.m.ScanRow(row.Scan)
	if err != nil {
		return zero, apperrors.NewStore("create "+r.m.Table, err)
	}

	return stored, nil
}

// Update applies a partial merge: only the supplied columns change, and
// updated_at advances. The target is loaded through FindByID first so the
// organization check (and its not-found semantics) apply before anything is
// written.
func (r *BaseRepository[T]) Update(ctx context.Context, organizationID int64, id string, fields map[string]interface{}) (T, error) {
	var zero T

	current, err := r.FindByID(ctx, organizationID, id)
	if err != nil {
		return zero, err
	}
	if len(fields) == 0 {
		return current, nil
	}

	allowed := make(map[string]bool, len(r.m.UpdatableColumns))
	for _, col := range r.m.UpdatableColumns {
		allowed[col] = true
	}

	columns := make([]string, 0, len(fields))
	for col := range fields {
		if !allowed[col] {
			return zero, fmt.Errorf("column %q is not updatable on %s", col, r.m.Table)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns) // deterministic SQL for tests and query plans

	setParts := make([]string, 0, len(columns)+1)
	args := make([]interface{}, 0, len(columns)+2)
	for i, col := range columns {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, fields[col])
	}
	setParts = append(setParts, "updated_at = NOW()")

	query := fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = $%d AND organization_id = $%d AND deleted_at IS NULL RETURNING %s`,
		r.m.Table,
		strings.Join(setParts, ", "),
		len(args)+1, len(args)+2,
		r.selectList(),
	)
	args = append(args, id, organizationID)

	row := r.db.QueryRowContext(ctx, query, args...)
	updated, err := r.m.ScanRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Deleted between the read and the write; same contract as a miss.
			return zero, apperrors.NewNotFound(r.m.Resource, id)
		}
		return zero, apperrors.NewStore("update "+r.m.Table, err)
	}

	return updated, nil
}

// Delete soft-deletes the entity by stamping deleted_at. It is idempotent by
// contract: deleting a row that is already deleted, or that never existed,
// succeeds exactly like deleting a live one. Only store failures surface.
func (r *BaseRepository[T]) Delete(ctx context.Context, organizationID int64, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		// Can never match a row; the idempotence contract makes this a
		// success.
		return nil
	}

	query := fmt.Sprintf(
		`UPDATE %s SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL`,
		r.m.Table,
	)

	if _, err := r.db.ExecContext(ctx, query, id, organizationID); err != nil {
		return apperrors.NewStore("delete "+r.m.Table, err)
	}

	return nil
}
