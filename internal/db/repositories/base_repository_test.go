package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/audittrail/audittrail/internal/apperrors"
	"github.com/audittrail/audittrail/internal/db/models"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// The generic repository is exercised through the category binding; every
// entity repository shares the same code paths.

func newCategoryRepo(t *testing.T) (*CategoryRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCategoryRepository(sqlx.NewDb(db, "sqlmock")), mock
}

var categoryCols = []string{
	"id", "organization_id", "name", "description",
	"created_at", "updated_at", "deleted_at",
}

func categoryRow(id string, orgID int64, name string, createdAt time.Time) []driverValue {
	return []driverValue{id, orgID, name, nil, createdAt, createdAt, nil}
}

type driverValue = driver.Value

func addCategoryRows(rows *sqlmock.Rows, entries ...[]driverValue) *sqlmock.Rows {
	for _, e := range entries {
		rows.AddRow(e...)
	}
	return rows
}

// ---------------------------------------------------------------------------
// PaginatedFind
// ---------------------------------------------------------------------------

func TestPaginatedFind_FirstPageWithMore(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	first := uuid.New().String()
	second := uuid.New().String()
	extra := uuid.New().String()
	now := time.Now()

	rows := addCategoryRows(sqlmock.NewRows(categoryCols),
		categoryRow(first, 7, "access", now),
		categoryRow(second, 7, "billing", now.Add(time.Second)),
		categoryRow(extra, 7, "clinical", now.Add(2*time.Second)),
	)
	// limit is page size + 1: the extra row only decides the cursor
	mock.ExpectQuery(`SELECT (.+) FROM categories WHERE organization_id = \$1 AND deleted_at IS NULL ORDER BY created_at, id LIMIT \$2`).
		WithArgs(int64(7), 3).
		WillReturnRows(rows)

	page, err := repo.PaginatedFind(context.Background(), 7, Pagination{ItemsPerPage: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	if page.LastID != second {
		t.Errorf("cursor should name the last returned item, got %q", page.LastID)
	}
	if page.Items[0].ID != first || page.Items[1].ID != second {
		t.Errorf("items out of order: %q, %q", page.Items[0].ID, page.Items[1].ID)
	}
}

func TestPaginatedFind_FinalPageHasNoCursor(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	only := uuid.New().String()
	rows := addCategoryRows(sqlmock.NewRows(categoryCols),
		categoryRow(only, 7, "access", time.Now()),
	)
	mock.ExpectQuery(`SELECT (.+) FROM categories`).
		WithArgs(int64(7), 3).
		WillReturnRows(rows)

	page, err := repo.PaginatedFind(context.Background(), 7, Pagination{ItemsPerPage: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
	if page.LastID != "" {
		t.Errorf("final page must carry no cursor, got %q", page.LastID)
	}
}

func TestPaginatedFind_WithCursor(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	cursor := uuid.New().String()
	next := uuid.New().String()
	rows := addCategoryRows(sqlmock.NewRows(categoryCols),
		categoryRow(next, 7, "billing", time.Now()),
	)
	mock.ExpectQuery(`SELECT (.+) FROM categories WHERE organization_id = \$1 AND deleted_at IS NULL AND \(created_at, id\) > \(SELECT created_at, id FROM categories WHERE id = \$2 AND organization_id = \$1\) ORDER BY created_at, id LIMIT \$3`).
		WithArgs(int64(7), cursor, 3).
		WillReturnRows(rows)

	page, err := repo.PaginatedFind(context.Background(), 7, Pagination{ItemsPerPage: 2, LastID: cursor})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != next {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestPaginatedFind_WalkVisitsEveryRowExactlyOnce(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	// Five seeded rows walked two at a time: three pages, the last one short.
	now := time.Now()
	seeded := make([]string, 5)
	seededRows := make([][]driverValue, 5)
	names := []string{"access", "billing", "clinical", "consent", "export"}
	for i := range seeded {
		seeded[i] = uuid.New().String()
		seededRows[i] = categoryRow(seeded[i], 7, names[i], now.Add(time.Duration(i)*time.Second))
	}

	firstPage := `SELECT (.+) FROM categories WHERE organization_id = \$1 AND deleted_at IS NULL ORDER BY created_at, id LIMIT \$2`
	nextPage := `SELECT (.+) FROM categories WHERE organization_id = \$1 AND deleted_at IS NULL AND \(created_at, id\) > \(SELECT created_at, id FROM categories WHERE id = \$2 AND organization_id = \$1\) ORDER BY created_at, id LIMIT \$3`

	mock.ExpectQuery(firstPage).
		WithArgs(int64(7), 3).
		WillReturnRows(addCategoryRows(sqlmock.NewRows(categoryCols), seededRows[0], seededRows[1], seededRows[2]))
	mock.ExpectQuery(nextPage).
		WithArgs(int64(7), seeded[1], 3).
		WillReturnRows(addCategoryRows(sqlmock.NewRows(categoryCols), seededRows[2], seededRows[3], seededRows[4]))
	mock.ExpectQuery(nextPage).
		WithArgs(int64(7), seeded[3], 3).
		WillReturnRows(addCategoryRows(sqlmock.NewRows(categoryCols), seededRows[4]))

	var walked []string
	p := Pagination{ItemsPerPage: 2}
	for pages := 0; ; pages++ {
		if pages > 5 {
			t.Fatal("walk did not terminate")
		}
		page, err := repo.PaginatedFind(context.Background(), 7, p)
		if err != nil {
			t.Fatalf("page %d: %v", pages, err)
		}
		for _, item := range page.Items {
			walked = append(walked, item.ID)
		}
		if page.LastID == "" {
			break
		}
		p.LastID = page.LastID
	}

	if len(walked) != len(seeded) {
		t.Fatalf("walked %d rows, want %d: %v", len(walked), len(seeded), walked)
	}
	for i, id := range seeded {
		if walked[i] != id {
			t.Errorf("position %d: got %q, want %q", i, walked[i], id)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPaginatedFind_MalformedCursorYieldsEmptyFinalPage(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	// No query must reach the database: the cursor can never match a row.
	page, err := repo.PaginatedFind(context.Background(), 7, Pagination{ItemsPerPage: 2, LastID: "not-a-uuid"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 0 || page.LastID != "" {
		t.Fatalf("expected empty final page, got %+v", page)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database access: %v", err)
	}
}

func TestPaginatedFind_RejectsNonPositivePageSize(t *testing.T) {
	repo, _ := newCategoryRepo(t)

	if _, err := repo.PaginatedFind(context.Background(), 7, Pagination{ItemsPerPage: 0}); err == nil {
		t.Fatal("expected error for zero page size")
	}
}

// ---------------------------------------------------------------------------
// Find
// ---------------------------------------------------------------------------

func TestFind_ReturnsAllLiveRowsInCreationOrder(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	first := uuid.New().String()
	second := uuid.New().String()
	now := time.Now()

	rows := addCategoryRows(sqlmock.NewRows(categoryCols),
		categoryRow(first, 7, "access", now),
		categoryRow(second, 7, "billing", now.Add(time.Second)),
	)
	mock.ExpectQuery(`SELECT (.+) FROM categories WHERE organization_id = \$1 AND deleted_at IS NULL ORDER BY created_at, id`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	items, err := repo.Find(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].ID != first || items[1].ID != second {
		t.Fatalf("unexpected items: %+v", items)
	}
}

// ---------------------------------------------------------------------------
// FindByID
// ---------------------------------------------------------------------------

func TestFindByID_Success(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	id := uuid.New().String()
	rows := addCategoryRows(sqlmock.NewRows(categoryCols),
		categoryRow(id, 7, "access", time.Now()),
	)
	mock.ExpectQuery(`SELECT (.+) FROM categories WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(id).
		WillReturnRows(rows)

	category, err := repo.FindByID(context.Background(), 7, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if category.ID != id || category.Name != "access" {
		t.Errorf("unexpected entity: %+v", category)
	}
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	id := uuid.New().String()
	mock.ExpectQuery(`SELECT (.+) FROM categories`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(categoryCols))

	_, err := repo.FindByID(context.Background(), 7, id)
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestFindByID_MalformedIDNeverQueries(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	_, err := repo.FindByID(context.Background(), 7, "garbage")
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database access: %v", err)
	}
}

func TestFindByID_CrossOrganizationLooksLikeMiss(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	id := uuid.New().String()
	rows := addCategoryRows(sqlmock.NewRows(categoryCols),
		categoryRow(id, 99, "access", time.Now()), // belongs to org 99
	)
	mock.ExpectQuery(`SELECT (.+) FROM categories`).
		WithArgs(id).
		WillReturnRows(rows)

	_, err := repo.FindByID(context.Background(), 7, id)
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}

	var nfe *apperrors.NotFoundError
	if !errors.As(err, &nfe) || !nfe.CrossOrganization {
		t.Error("cross-organization flag should be set internally")
	}
	// The rendered message must be identical to a plain miss.
	plain := apperrors.NewNotFound("category", id)
	if err.Error() != plain.Error() {
		t.Errorf("cross-org miss leaks: %q vs %q", err.Error(), plain.Error())
	}
}

// ---------------------------------------------------------------------------
// Create / Update / Delete
// ---------------------------------------------------------------------------

func TestCreate_AssignsIdentityAndReturnsStoredRow(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO categories \(id, organization_id, name, description\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING (.+)`).
		WithArgs(sqlmock.AnyArg(), int64(7), "access", nil).
		WillReturnRows(addCategoryRows(sqlmock.NewRows(categoryCols),
			categoryRow(uuid.New().String(), 7, "access", now)))

	stored, err := repo.Create(context.Background(), 7, &models.Category{Name: "access"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.OrganizationID != 7 {
		t.Errorf("organization not stamped: %d", stored.OrganizationID)
	}
	if _, err := uuid.Parse(stored.ID); err != nil {
		t.Errorf("stored ID is not a uuid: %q", stored.ID)
	}
}

func TestUpdate_BuildsDeterministicSetClause(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	id := uuid.New().String()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM categories WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(id).
		WillReturnRows(addCategoryRows(sqlmock.NewRows(categoryCols),
			categoryRow(id, 7, "access", now)))

	// Columns are sorted: description before name.
	mock.ExpectQuery(`UPDATE categories SET description = \$1, name = \$2, updated_at = NOW\(\) WHERE id = \$3 AND organization_id = \$4 AND deleted_at IS NULL RETURNING (.+)`).
		WithArgs("updated", "renamed", id, int64(7)).
		WillReturnRows(addCategoryRows(sqlmock.NewRows(categoryCols),
			categoryRow(id, 7, "renamed", now)))

	updated, err := repo.Update(context.Background(), 7, id, map[string]interface{}{
		"name":        "renamed",
		"description": "updated",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "renamed" {
		t.Errorf("unexpected name: %q", updated.Name)
	}
}

func TestUpdate_RejectsUnknownColumn(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	id := uuid.New().String()
	mock.ExpectQuery(`SELECT (.+) FROM categories`).
		WithArgs(id).
		WillReturnRows(addCategoryRows(sqlmock.NewRows(categoryCols),
			categoryRow(id, 7, "access", time.Now())))

	_, err := repo.Update(context.Background(), 7, id, map[string]interface{}{
		"organization_id": int64(99),
	})
	if err == nil {
		t.Fatal("expected error for non-updatable column")
	}
}

func TestUpdate_EmptyFieldsReturnsCurrent(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	id := uuid.New().String()
	mock.ExpectQuery(`SELECT (.+) FROM categories`).
		WithArgs(id).
		WillReturnRows(addCategoryRows(sqlmock.NewRows(categoryCols),
			categoryRow(id, 7, "access", time.Now())))

	current, err := repo.Update(context.Background(), 7, id, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current.ID != id {
		t.Errorf("unexpected entity: %+v", current)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no UPDATE should run with empty fields: %v", err)
	}
}

func TestDelete_SoftDeletesLiveRow(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	id := uuid.New().String()
	mock.ExpectExec(`UPDATE categories SET deleted_at = NOW\(\), updated_at = NOW\(\) WHERE id = \$1 AND organization_id = \$2 AND deleted_at IS NULL`).
		WithArgs(id, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), 7, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_IsIdempotent(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	id := uuid.New().String()
	// Zero rows affected: already deleted or never existed. Still a success.
	mock.ExpectExec(`UPDATE categories SET deleted_at = NOW\(\)`).
		WithArgs(id, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 7, id); err != nil {
		t.Fatalf("repeat delete must succeed, got %v", err)
	}
}

func TestDelete_MalformedIDSucceedsWithoutQuery(t *testing.T) {
	repo, mock := newCategoryRepo(t)

	if err := repo.Delete(context.Background(), 7, "garbage"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database access: %v", err)
	}
}
