// references.go implements the CRUD surface shared by the three
// classification reference tables. One generic handler serves categories,
// sub-categories, and action types; only the store and the projection differ.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/audittrail/audittrail/internal/config"
	"github.com/audittrail/audittrail/internal/db/models"
	"github.com/audittrail/audittrail/internal/db/repositories"
	"github.com/audittrail/audittrail/internal/middleware"
	"github.com/audittrail/audittrail/internal/services"
)

// referenceStore is the repository slice a reference table handler needs.
// Each entity repository satisfies it through its embedded base repository.
type referenceStore[T models.Entity] interface {
	PaginatedFind(ctx context.Context, organizationID int64, p repositories.Pagination) (repositories.Page[T], error)
	FindByID(ctx context.Context, organizationID int64, id string) (T, error)
	Create(ctx context.Context, organizationID int64, entity T) (T, error)
	Update(ctx context.Context, organizationID int64, id string, fields map[string]interface{}) (T, error)
	Delete(ctx context.Context, organizationID int64, id string) error
}

// createReferenceRequest is the JSON body for creating a reference entry.
type createReferenceRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// updateReferenceRequest is the JSON body for a partial update. Absent fields
// are left untouched.
type updateReferenceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ReferenceHandlers serves the CRUD routes for one reference table.
type ReferenceHandlers[T models.Entity] struct {
	store         referenceStore[T]
	build         func(name string, description *string) T
	project       func(T) *services.ReferenceEntryDTO
	pagination    config.PaginationConfig
	defaultLocale string
}

// NewReferenceHandlers wires a reference table's store and projection into a
// handler set.
func NewReferenceHandlers[T models.Entity](
	store referenceStore[T],
	build func(name string, description *string) T,
	project func(T) *services.ReferenceEntryDTO,
	pagination config.PaginationConfig,
	defaultLocale string,
) *ReferenceHandlers[T] {
	return &ReferenceHandlers[T]{
		store:         store,
		build:         build,
		project:       project,
		pagination:    pagination,
		defaultLocale: defaultLocale,
	}
}

// List handles GET on the collection.
func (h *ReferenceHandlers[T]) List(c *gin.Context) {
	locale := localeFromRequest(c, h.defaultLocale)

	p, err := parsePagination(c, h.pagination)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.store.PaginatedFind(c.Request.Context(), middleware.OrganizationFromContext(c), p)
	if err != nil {
		writeError(c, err, locale)
		return
	}

	out := services.ReferencePageDTO{
		Items:  make([]*services.ReferenceEntryDTO, 0, len(page.Items)),
		LastID: page.LastID,
	}
	for _, item := range page.Items {
		out.Items = append(out.Items, h.project(item))
	}

	c.JSON(http.StatusOK, out)
}

// Create handles POST on the collection.
func (h *ReferenceHandlers[T]) Create(c *gin.Context) {
	locale := localeFromRequest(c, h.defaultLocale)

	var req createReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	stored, err := h.store.Create(c.Request.Context(), middleware.OrganizationFromContext(c), h.build(req.Name, req.Description))
	if err != nil {
		writeError(c, err, locale)
		return
	}

	c.JSON(http.StatusCreated, h.project(stored))
}

// Get handles GET on a single entry.
func (h *ReferenceHandlers[T]) Get(c *gin.Context) {
	locale := localeFromRequest(c, h.defaultLocale)

	entity, err := h.store.FindByID(c.Request.Context(), middleware.OrganizationFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, locale)
		return
	}

	c.JSON(http.StatusOK, h.project(entity))
}

// Update handles PATCH on a single entry.
func (h *ReferenceHandlers[T]) Update(c *gin.Context) {
	locale := localeFromRequest(c, h.defaultLocale)

	var req updateReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be empty"})
			return
		}
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}

	updated, err := h.store.Update(c.Request.Context(), middleware.OrganizationFromContext(c), c.Param("id"), fields)
	if err != nil {
		writeError(c, err, locale)
		return
	}

	c.JSON(http.StatusOK, h.project(updated))
}

// Delete handles DELETE on a single entry. Deletion is idempotent, so a
// repeat delete (or one aimed at an identifier that never existed) returns
// the same 204 as the first.
func (h *ReferenceHandlers[T]) Delete(c *gin.Context) {
	locale := localeFromRequest(c, h.defaultLocale)

	if err := h.store.Delete(c.Request.Context(), middleware.OrganizationFromContext(c), c.Param("id")); err != nil {
		writeError(c, err, locale)
		return
	}

	c.Status(http.StatusNoContent)
}
