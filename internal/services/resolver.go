// resolver.go implements the conditional reference resolver used when
// creating an audit log: each supplied classification reference is looked up
// concurrently, absent references are skipped, and every supplied-but-missing
// reference is reported by name.
package services

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/audittrail/audittrail/internal/apperrors"
	"github.com/audittrail/audittrail/internal/db/models"
	"github.com/audittrail/audittrail/internal/telemetry"
)

// CategoryFinder resolves a category inside an organization.
type CategoryFinder interface {
	FindByID(ctx context.Context, organizationID int64, id string) (*models.Category, error)
}

// SubCategoryFinder resolves a sub-category inside an organization.
type SubCategoryFinder interface {
	FindByID(ctx context.Context, organizationID int64, id string) (*models.SubCategory, error)
}

// ActionTypeFinder resolves an action type inside an organization.
type ActionTypeFinder interface {
	FindByID(ctx context.Context, organizationID int64, id string) (*models.ActionType, error)
}

// ResolvedReferences holds the outcome of a resolve pass. A nil slot means the
// corresponding reference was not supplied.
type ResolvedReferences struct {
	Category    *models.Category
	SubCategory *models.SubCategory
	ActionType  *models.ActionType
}

// ReferenceResolver resolves the optional classification references of an
// audit log record.
type ReferenceResolver struct {
	categories    CategoryFinder
	subCategories SubCategoryFinder
	actionTypes   ActionTypeFinder
}

// NewReferenceResolver creates a resolver over the three reference
// repositories.
func NewReferenceResolver(c CategoryFinder, s SubCategoryFinder, a ActionTypeFinder) *ReferenceResolver {
	return &ReferenceResolver{categories: c, subCategories: s, actionTypes: a}
}

// referenceRank fixes the reporting order of unresolved references so a
// request with several bad references produces a deterministic error.
func referenceRank(kind apperrors.ReferenceKind) int {
	switch kind {
	case apperrors.ReferenceCategory:
		return 0
	case apperrors.ReferenceSubCategory:
		return 1
	default:
		return 2
	}
}

// Resolve looks up each supplied reference concurrently. The create path
// therefore waits only as long as the slowest single lookup.
//
// A reference that was not supplied is skipped without error. A reference
// that was supplied but does not resolve to a live entity in the organization
// is recorded, and once all requested lookups have finished, every miss is
// reported together in one ValidationError — the resolve does not stop at the
// first rejection. Store failures are different: they abort the resolve and
// propagate as-is.
func (r *ReferenceResolver) Resolve(ctx context.Context, organizationID int64, categoryID, subCategoryID, actionTypeID *string) (*ResolvedReferences, error) {
	resolved := &ResolvedReferences{}

	var mu sync.Mutex
	var unresolved []apperrors.UnresolvedReference

	miss := func(kind apperrors.ReferenceKind, id string) {
		telemetry.ReferenceResolutionFailuresTotal.WithLabelValues(string(kind)).Inc()
		mu.Lock()
		unresolved = append(unresolved, apperrors.UnresolvedReference{Kind: kind, ID: id})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	if categoryID != nil {
		id := *categoryID
		g.Go(func() error {
			category, err := r.categories.FindByID(gctx, organizationID, id)
			if err != nil {
				if apperrors.IsNotFound(err) {
					miss(apperrors.ReferenceCategory, id)
					return nil
				}
				return err
			}
			mu.Lock()
			resolved.Category = category
			mu.Unlock()
			return nil
		})
	}

	if subCategoryID != nil {
		id := *subCategoryID
		g.Go(func() error {
			subCategory, err := r.subCategories.FindByID(gctx, organizationID, id)
			if err != nil {
				if apperrors.IsNotFound(err) {
					miss(apperrors.ReferenceSubCategory, id)
					return nil
				}
				return err
			}
			mu.Lock()
			resolved.SubCategory = subCategory
			mu.Unlock()
			return nil
		})
	}

	if actionTypeID != nil {
		id := *actionTypeID
		g.Go(func() error {
			actionType, err := r.actionTypes.FindByID(gctx, organizationID, id)
			if err != nil {
				if apperrors.IsNotFound(err) {
					miss(apperrors.ReferenceActionType, id)
					return nil
				}
				return err
			}
			mu.Lock()
			resolved.ActionType = actionType
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(unresolved) > 0 {
		sort.Slice(unresolved, func(i, j int) bool {
			return referenceRank(unresolved[i].Kind) < referenceRank(unresolved[j].Kind)
		})
		return nil, apperrors.NewValidation(unresolved...)
	}

	return resolved, nil
}
