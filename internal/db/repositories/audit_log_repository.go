// audit_log_repository.go binds the generic repository to the audit_logs
// table, handling the JSONB payloads and the text[] roles column.
package repositories

import (
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/audittrail/audittrail/internal/db/models"
)

// AuditLogRepository stores audit log records. Records are write-once: the
// mapping exposes no updatable columns, so the only mutation after create is
// the soft delete.
type AuditLogRepository struct {
	*BaseRepository[*models.AuditLog]
}

// NewAuditLogRepository creates a new AuditLogRepository.
func NewAuditLogRepository(db *sqlx.DB) *AuditLogRepository {
	return &AuditLogRepository{BaseRepository: NewBaseRepository(db, auditLogMapping())}
}

// jsonbOrNull renders an optional structured payload as a JSONB argument.
// The maps originate from decoded request JSON, so re-encoding cannot fail.
func jsonbOrNull(m map[string]interface{}) interface{} {
	if m == nil {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}

func auditLogMapping() Mapping[*models.AuditLog] {
	return Mapping[*models.AuditLog]{
		Table:    "audit_logs",
		Resource: "audit log",
		Columns: []string{
			"id", "organization_id", "facility_id", "user_id", "user_roles",
			"method", "url", "changes", "response",
			"category_id", "sub_category_id", "action_type_id",
			"created_at", "updated_at", "deleted_at",
		},
		ScanRow: func(scan func(dest ...interface{}) error) (*models.AuditLog, error) {
			l := &models.AuditLog{}
			var roles pq.StringArray
			var changes, response []byte

			err := scan(
				&l.ID, &l.OrganizationID, &l.FacilityID, &l.UserID, &roles,
				&l.Method, &l.URL, &changes, &response,
				&l.CategoryID, &l.SubCategoryID, &l.ActionTypeID,
				&l.CreatedAt, &l.UpdatedAt, &l.DeletedAt,
			)
			if err != nil {
				return nil, err
			}

			l.UserRoles = []string(roles)
			if len(changes) > 0 {
				if err := json.Unmarshal(changes, &l.Changes); err != nil {
					return nil, err
				}
			}
			if len(response) > 0 {
				if err := json.Unmarshal(response, &l.Response); err != nil {
					return nil, err
				}
			}
			return l, nil
		},
		InsertColumns: []string{
			"id", "organization_id", "facility_id", "user_id", "user_roles",
			"method", "url", "changes", "response",
			"category_id", "sub_category_id", "action_type_id",
		},
		InsertArgs: func(l *models.AuditLog) []interface{} {
			return []interface{}{
				l.ID, l.OrganizationID, l.FacilityID, l.UserID, pq.Array(l.UserRoles),
				l.Method, l.URL, jsonbOrNull(l.Changes), jsonbOrNull(l.Response),
				l.CategoryID, l.SubCategoryID, l.ActionTypeID,
			}
		},
		// Audit logs are immutable records; nothing is updatable in place.
		UpdatableColumns: nil,
	}
}
