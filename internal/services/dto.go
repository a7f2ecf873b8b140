// dto.go defines the JSON projections the HTTP layer returns. Internal
// bookkeeping such as soft-deletion timestamps never leaves the service.
package services

import (
	"time"

	"github.com/audittrail/audittrail/internal/db/models"
)

// ReferenceDTO is the compact form of a resolved classification reference.
type ReferenceDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuditLogDTO is the external form of an audit log record. The resolved
// Category, SubCategory, and ActionType summaries are populated on create,
// where the resolver has just fetched them; list responses carry IDs only.
type AuditLogDTO struct {
	ID             string                 `json:"id"`
	OrganizationID int64                  `json:"organization_id"`
	FacilityID     *int64                 `json:"facility_id,omitempty"`
	UserID         int64                  `json:"user_id"`
	UserRoles      []string               `json:"user_roles,omitempty"`
	Method         string                 `json:"method"`
	URL            string                 `json:"url"`
	Changes        map[string]interface{} `json:"changes,omitempty"`
	Response       map[string]interface{} `json:"response,omitempty"`
	CategoryID     *string                `json:"category_id,omitempty"`
	SubCategoryID  *string                `json:"sub_category_id,omitempty"`
	ActionTypeID   *string                `json:"action_type_id,omitempty"`
	Category       *ReferenceDTO          `json:"category,omitempty"`
	SubCategory    *ReferenceDTO          `json:"sub_category,omitempty"`
	ActionType     *ReferenceDTO          `json:"action_type,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// AuditLogPageDTO is one page of audit log records. LastID is the cursor for
// the next page; an empty LastID means this page is the final one.
type AuditLogPageDTO struct {
	Items  []*AuditLogDTO `json:"items"`
	LastID string         `json:"last_id,omitempty"`
}

// NewAuditLogDTO projects a stored record, embedding resolved reference
// summaries when refs is non-nil.
func NewAuditLogDTO(l *models.AuditLog, refs *ResolvedReferences) *AuditLogDTO {
	dto := &AuditLogDTO{
		ID:             l.ID,
		OrganizationID: l.OrganizationID,
		FacilityID:     l.FacilityID,
		UserID:         l.UserID,
		UserRoles:      l.UserRoles,
		Method:         l.Method,
		URL:            l.URL,
		Changes:        l.Changes,
		Response:       l.Response,
		CategoryID:     l.CategoryID,
		SubCategoryID:  l.SubCategoryID,
		ActionTypeID:   l.ActionTypeID,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
	if refs != nil {
		if refs.Category != nil {
			dto.Category = &ReferenceDTO{ID: refs.Category.ID, Name: refs.Category.Name}
		}
		if refs.SubCategory != nil {
			dto.SubCategory = &ReferenceDTO{ID: refs.SubCategory.ID, Name: refs.SubCategory.Name}
		}
		if refs.ActionType != nil {
			dto.ActionType = &ReferenceDTO{ID: refs.ActionType.ID, Name: refs.ActionType.Name}
		}
	}
	return dto
}

// ReferenceEntryDTO is the external form of a reference table row, shared by
// categories, sub-categories, and action types.
type ReferenceEntryDTO struct {
	ID             string    `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ReferencePageDTO is one page of reference table rows.
type ReferencePageDTO struct {
	Items  []*ReferenceEntryDTO `json:"items"`
	LastID string               `json:"last_id,omitempty"`
}

// NewCategoryDTO projects a stored category.
func NewCategoryDTO(c *models.Category) *ReferenceEntryDTO {
	return &ReferenceEntryDTO{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		Name:           c.Name,
		Description:    c.Description,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// NewSubCategoryDTO projects a stored sub-category.
func NewSubCategoryDTO(s *models.SubCategory) *ReferenceEntryDTO {
	return &ReferenceEntryDTO{
		ID:             s.ID,
		OrganizationID: s.OrganizationID,
		Name:           s.Name,
		Description:    s.Description,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// NewActionTypeDTO projects a stored action type.
func NewActionTypeDTO(a *models.ActionType) *ReferenceEntryDTO {
	return &ReferenceEntryDTO{
		ID:             a.ID,
		OrganizationID: a.OrganizationID,
		Name:           a.Name,
		Description:    a.Description,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
