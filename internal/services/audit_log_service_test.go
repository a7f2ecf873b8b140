package services

import (
	"context"
	"testing"
	"time"

	"github.com/audittrail/audittrail/internal/apperrors"
	"github.com/audittrail/audittrail/internal/db/models"
	"github.com/audittrail/audittrail/internal/db/repositories"
	"github.com/audittrail/audittrail/internal/export"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAuditLogStore struct {
	created *models.AuditLog
	page    repositories.Page[*models.AuditLog]
	err     error
}

func (s *stubAuditLogStore) Create(_ context.Context, organizationID int64, entity *models.AuditLog) (*models.AuditLog, error) {
	if s.err != nil {
		return nil, s.err
	}
	stored := *entity
	stored.ID = "e5b4f0c2-0000-4000-8000-000000000001"
	stored.OrganizationID = organizationID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.created = &stored
	return &stored, nil
}

func (s *stubAuditLogStore) PaginatedFind(_ context.Context, _ int64, _ repositories.Pagination) (repositories.Page[*models.AuditLog], error) {
	return s.page, s.err
}

type recordingShipper struct {
	shipped chan *export.Entry
}

func newRecordingShipper() *recordingShipper {
	return &recordingShipper{shipped: make(chan *export.Entry, 1)}
}

func (r *recordingShipper) Ship(_ context.Context, entry *export.Entry) error {
	r.shipped <- entry
	return nil
}

func (r *recordingShipper) Close() error { return nil }

func happyResolver() *ReferenceResolver {
	return NewReferenceResolver(
		&stubCategoryFinder{entity: &models.Category{ID: "cat-1", Name: "access"}},
		&stubSubCategoryFinder{entity: &models.SubCategory{ID: "sub-1", Name: "login"}},
		&stubActionTypeFinder{entity: &models.ActionType{ID: "act-1", Name: "read"}},
	)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestServiceCreate_EmbedsResolvedReferences(t *testing.T) {
	store := &stubAuditLogStore{}
	service := NewAuditLogService(store, happyResolver(), nil)

	dto, err := service.Create(context.Background(), 7, CreateAuditLogInput{
		UserID:     42,
		UserRoles:  []string{"admin"},
		Method:     "POST",
		URL:        "/patients/9",
		CategoryID: strPtr("cat-1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.OrganizationID != 7 {
		t.Errorf("organization must come from the caller, got %d", dto.OrganizationID)
	}
	if dto.Category == nil || dto.Category.Name != "access" {
		t.Errorf("resolved category summary missing: %+v", dto.Category)
	}
	if dto.SubCategory != nil || dto.ActionType != nil {
		t.Error("unsupplied references must not appear in the projection")
	}
	if store.created == nil {
		t.Fatal("record was not persisted")
	}
}

func TestServiceCreate_ValidationFailurePersistsNothing(t *testing.T) {
	store := &stubAuditLogStore{}
	resolver := NewReferenceResolver(
		&stubCategoryFinder{err: apperrors.NewNotFound("category", "cat-x")},
		&stubSubCategoryFinder{},
		&stubActionTypeFinder{},
	)
	service := NewAuditLogService(store, resolver, nil)

	_, err := service.Create(context.Background(), 7, CreateAuditLogInput{
		UserID:     42,
		Method:     "POST",
		URL:        "/patients/9",
		CategoryID: strPtr("cat-x"),
	})
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if store.created != nil {
		t.Fatal("nothing may be written when a reference fails to resolve")
	}
}

func TestServiceCreate_ShipsStoredRecordInBackground(t *testing.T) {
	store := &stubAuditLogStore{}
	shipper := newRecordingShipper()
	service := NewAuditLogService(store, happyResolver(), shipper)

	dto, err := service.Create(context.Background(), 7, CreateAuditLogInput{
		UserID: 42,
		Method: "DELETE",
		URL:    "/visits/3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case entry := <-shipper.shipped:
		if entry.ID != dto.ID {
			t.Errorf("shipped entry carries wrong id: %s", entry.ID)
		}
		if entry.OrganizationID != 7 {
			t.Errorf("shipped entry carries wrong organization: %d", entry.OrganizationID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("entry was never shipped")
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestServiceList_ProjectsPageAndCursor(t *testing.T) {
	store := &stubAuditLogStore{
		page: repositories.Page[*models.AuditLog]{
			Items: []*models.AuditLog{
				{ID: "a", OrganizationID: 7, UserID: 1, Method: "GET", URL: "/x"},
				{ID: "b", OrganizationID: 7, UserID: 2, Method: "GET", URL: "/y"},
			},
			LastID: "b",
		},
	}
	service := NewAuditLogService(store, happyResolver(), nil)

	page, err := service.ListForOrganization(context.Background(), 7, repositories.Pagination{ItemsPerPage: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 || page.LastID != "b" {
		t.Fatalf("unexpected page: %d items, cursor %q", len(page.Items), page.LastID)
	}
	if page.Items[0].Category != nil {
		t.Error("list projections must not carry resolved reference summaries")
	}
}
