// audit_log_service.go implements the create and list operations for audit
// log records: resolve the supplied references, persist, project, and hand
// the stored record to the export pipeline off the request path.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/audittrail/audittrail/internal/db/models"
	"github.com/audittrail/audittrail/internal/db/repositories"
	"github.com/audittrail/audittrail/internal/export"
	"github.com/audittrail/audittrail/internal/safego"
	"github.com/audittrail/audittrail/internal/telemetry"
)

// exportTimeout bounds a single background export attempt.
const exportTimeout = 10 * time.Second

// AuditLogStore is the slice of the audit log repository the service uses.
type AuditLogStore interface {
	Create(ctx context.Context, organizationID int64, entity *models.AuditLog) (*models.AuditLog, error)
	PaginatedFind(ctx context.Context, organizationID int64, p repositories.Pagination) (repositories.Page[*models.AuditLog], error)
}

// CreateAuditLogInput carries the caller-supplied fields of a new record.
// The organization comes from the request path, never from the body.
type CreateAuditLogInput struct {
	UserID        int64
	FacilityID    *int64
	UserRoles     []string
	Method        string
	URL           string
	Changes       map[string]interface{}
	Response      map[string]interface{}
	CategoryID    *string
	SubCategoryID *string
	ActionTypeID  *string
}

// AuditLogService coordinates reference resolution, persistence, and export
// for audit log records.
type AuditLogService struct {
	logs     AuditLogStore
	resolver *ReferenceResolver
	shipper  export.Shipper
}

// NewAuditLogService creates the service. A nil shipper disables export.
func NewAuditLogService(logs AuditLogStore, resolver *ReferenceResolver, shipper export.Shipper) *AuditLogService {
	return &AuditLogService{logs: logs, resolver: resolver, shipper: shipper}
}

// Create resolves the supplied classification references, persists the record
// in the caller's organization, and returns its projection with the resolved
// reference summaries embedded. Unresolvable references fail the whole create
// before anything is written. Export to external destinations happens in the
// background once the row is durable, so a slow or dead destination cannot
// fail or delay the request.
func (s *AuditLogService) Create(ctx context.Context, organizationID int64, input CreateAuditLogInput) (*AuditLogDTO, error) {
	refs, err := s.resolver.Resolve(ctx, organizationID, input.CategoryID, input.SubCategoryID, input.ActionTypeID)
	if err != nil {
		return nil, err
	}

	record := &models.AuditLog{
		FacilityID:    input.FacilityID,
		UserID:        input.UserID,
		UserRoles:     input.UserRoles,
		Method:        input.Method,
		URL:           input.URL,
		Changes:       input.Changes,
		Response:      input.Response,
		CategoryID:    input.CategoryID,
		SubCategoryID: input.SubCategoryID,
		ActionTypeID:  input.ActionTypeID,
	}

	stored, err := s.logs.Create(ctx, organizationID, record)
	if err != nil {
		return nil, err
	}
	telemetry.AuditLogsCreatedTotal.Inc()

	if s.shipper != nil {
		entry := export.EntryFromRecord(stored)
		safego.Go(func() {
			shipCtx, cancel := context.WithTimeout(context.Background(), exportTimeout)
			defer cancel()
			if err := s.shipper.Ship(shipCtx, entry); err != nil {
				slog.Warn("audit log export failed",
					"audit_log_id", entry.ID,
					"organization_id", entry.OrganizationID,
					"error", err)
			}
		})
	}

	return NewAuditLogDTO(stored, refs), nil
}

// ListForOrganization returns one page of the organization's live records in
// stable creation order, along with the cursor for the next page.
func (s *AuditLogService) ListForOrganization(ctx context.Context, organizationID int64, p repositories.Pagination) (*AuditLogPageDTO, error) {
	page, err := s.logs.PaginatedFind(ctx, organizationID, p)
	if err != nil {
		return nil, err
	}

	out := &AuditLogPageDTO{
		Items:  make([]*AuditLogDTO, 0, len(page.Items)),
		LastID: page.LastID,
	}
	for _, record := range page.Items {
		out.Items = append(out.Items, NewAuditLogDTO(record, nil))
	}
	return out, nil
}
