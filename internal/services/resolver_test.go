package services

import (
	"context"
	"errors"
	"testing"

	"github.com/audittrail/audittrail/internal/apperrors"
	"github.com/audittrail/audittrail/internal/db/models"
)

// ---------------------------------------------------------------------------
// Stub finders
// ---------------------------------------------------------------------------

type stubCategoryFinder struct {
	entity *models.Category
	err    error
	calls  int
}

func (f *stubCategoryFinder) FindByID(_ context.Context, _ int64, _ string) (*models.Category, error) {
	f.calls++
	return f.entity, f.err
}

type stubSubCategoryFinder struct {
	entity *models.SubCategory
	err    error
	calls  int
}

func (f *stubSubCategoryFinder) FindByID(_ context.Context, _ int64, _ string) (*models.SubCategory, error) {
	f.calls++
	return f.entity, f.err
}

type stubActionTypeFinder struct {
	entity *models.ActionType
	err    error
	calls  int
}

func (f *stubActionTypeFinder) FindByID(_ context.Context, _ int64, _ string) (*models.ActionType, error) {
	f.calls++
	return f.entity, f.err
}

func strPtr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// Resolve
// ---------------------------------------------------------------------------

func TestResolve_AllSuppliedReferencesResolve(t *testing.T) {
	categories := &stubCategoryFinder{entity: &models.Category{ID: "cat-1", Name: "access"}}
	subCategories := &stubSubCategoryFinder{entity: &models.SubCategory{ID: "sub-1", Name: "login"}}
	actionTypes := &stubActionTypeFinder{entity: &models.ActionType{ID: "act-1", Name: "read"}}
	resolver := NewReferenceResolver(categories, subCategories, actionTypes)

	refs, err := resolver.Resolve(context.Background(), 7, strPtr("cat-1"), strPtr("sub-1"), strPtr("act-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refs.Category == nil || refs.Category.ID != "cat-1" {
		t.Errorf("category not resolved: %+v", refs.Category)
	}
	if refs.SubCategory == nil || refs.SubCategory.ID != "sub-1" {
		t.Errorf("sub-category not resolved: %+v", refs.SubCategory)
	}
	if refs.ActionType == nil || refs.ActionType.ID != "act-1" {
		t.Errorf("action type not resolved: %+v", refs.ActionType)
	}
}

func TestResolve_AbsentReferencesAreSkipped(t *testing.T) {
	categories := &stubCategoryFinder{entity: &models.Category{ID: "cat-1", Name: "access"}}
	subCategories := &stubSubCategoryFinder{err: errors.New("must not be called")}
	actionTypes := &stubActionTypeFinder{err: errors.New("must not be called")}
	resolver := NewReferenceResolver(categories, subCategories, actionTypes)

	refs, err := resolver.Resolve(context.Background(), 7, strPtr("cat-1"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refs.SubCategory != nil || refs.ActionType != nil {
		t.Error("unsupplied references must stay nil")
	}
	if subCategories.calls != 0 || actionTypes.calls != 0 {
		t.Error("unsupplied references must not be looked up")
	}
}

func TestResolve_NothingSupplied(t *testing.T) {
	resolver := NewReferenceResolver(&stubCategoryFinder{}, &stubSubCategoryFinder{}, &stubActionTypeFinder{})

	refs, err := resolver.Resolve(context.Background(), 7, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refs.Category != nil || refs.SubCategory != nil || refs.ActionType != nil {
		t.Errorf("expected empty result, got %+v", refs)
	}
}

func TestResolve_AllMissesReportedTogether(t *testing.T) {
	categories := &stubCategoryFinder{err: apperrors.NewNotFound("category", "cat-x")}
	subCategories := &stubSubCategoryFinder{err: apperrors.NewNotFound("sub_category", "sub-x")}
	actionTypes := &stubActionTypeFinder{entity: &models.ActionType{ID: "act-1", Name: "read"}}
	resolver := NewReferenceResolver(categories, subCategories, actionTypes)

	_, err := resolver.Resolve(context.Background(), 7, strPtr("cat-x"), strPtr("sub-x"), strPtr("act-1"))
	if err == nil {
		t.Fatal("expected a validation error")
	}

	var ve *apperrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if len(ve.Unresolved) != 2 {
		t.Fatalf("expected both misses reported, got %v", ve.Unresolved)
	}
	if ve.Unresolved[0].Kind != apperrors.ReferenceCategory || ve.Unresolved[0].ID != "cat-x" {
		t.Errorf("category miss must come first: %v", ve.Unresolved)
	}
	if ve.Unresolved[1].Kind != apperrors.ReferenceSubCategory || ve.Unresolved[1].ID != "sub-x" {
		t.Errorf("sub-category miss must come second: %v", ve.Unresolved)
	}
	if actionTypes.calls != 1 {
		t.Error("a miss must not cancel the other lookups")
	}
}

func TestResolve_StoreErrorAbortsResolve(t *testing.T) {
	storeErr := apperrors.NewStore("find categories by id", errors.New("connection reset"))
	categories := &stubCategoryFinder{err: storeErr}
	resolver := NewReferenceResolver(categories, &stubSubCategoryFinder{}, &stubActionTypeFinder{})

	_, err := resolver.Resolve(context.Background(), 7, strPtr("cat-1"), nil, nil)
	if err == nil {
		t.Fatal("expected a store error")
	}
	if apperrors.IsValidation(err) {
		t.Fatalf("store failures must not read as validation errors: %v", err)
	}
}
