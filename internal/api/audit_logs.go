// audit_logs.go implements the HTTP surface for audit log records: create one
// record, list an organization's records page by page.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/audittrail/audittrail/internal/config"
	"github.com/audittrail/audittrail/internal/middleware"
	"github.com/audittrail/audittrail/internal/services"
)

// createAuditLogRequest is the JSON body of a create request. The organization
// is taken from the path, never from the body.
type createAuditLogRequest struct {
	UserID        int64                  `json:"user_id" binding:"required"`
	FacilityID    *int64                 `json:"facility_id"`
	UserRoles     []string               `json:"user_roles"`
	Method        string                 `json:"method" binding:"required"`
	URL           string                 `json:"url" binding:"required"`
	Changes       map[string]interface{} `json:"changes"`
	Response      map[string]interface{} `json:"response"`
	CategoryID    *string                `json:"category_id"`
	SubCategoryID *string                `json:"sub_category_id"`
	ActionTypeID  *string                `json:"action_type_id"`
}

// AuditLogHandlers serves the audit log routes.
type AuditLogHandlers struct {
	service       *services.AuditLogService
	pagination    config.PaginationConfig
	defaultLocale string
}

// NewAuditLogHandlers creates the handler set.
func NewAuditLogHandlers(service *services.AuditLogService, pagination config.PaginationConfig, defaultLocale string) *AuditLogHandlers {
	return &AuditLogHandlers{service: service, pagination: pagination, defaultLocale: defaultLocale}
}

// Create handles POST /api/v1/orgs/:org/audit-logs.
func (h *AuditLogHandlers) Create(c *gin.Context) {
	locale := localeFromRequest(c, h.defaultLocale)

	var req createAuditLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	input := services.CreateAuditLogInput{
		UserID:        req.UserID,
		FacilityID:    req.FacilityID,
		UserRoles:     req.UserRoles,
		Method:        req.Method,
		URL:           req.URL,
		Changes:       req.Changes,
		Response:      req.Response,
		CategoryID:    req.CategoryID,
		SubCategoryID: req.SubCategoryID,
		ActionTypeID:  req.ActionTypeID,
	}

	record, err := h.service.Create(c.Request.Context(), middleware.OrganizationFromContext(c), input)
	if err != nil {
		writeError(c, err, locale)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// List handles GET /api/v1/orgs/:org/audit-logs.
func (h *AuditLogHandlers) List(c *gin.Context) {
	locale := localeFromRequest(c, h.defaultLocale)

	p, err := parsePagination(c, h.pagination)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.service.ListForOrganization(c.Request.Context(), middleware.OrganizationFromContext(c), p)
	if err != nil {
		writeError(c, err, locale)
		return
	}

	c.JSON(http.StatusOK, page)
}
