// action_type_repository.go binds the generic repository to the action_types
// reference table.
package repositories

import (
	"github.com/jmoiron/sqlx"

	"github.com/audittrail/audittrail/internal/db/models"
)

// ActionTypeRepository stores audit log action types.
type ActionTypeRepository struct {
	*BaseRepository[*models.ActionType]
}

// NewActionTypeRepository creates a new ActionTypeRepository.
func NewActionTypeRepository(db *sqlx.DB) *ActionTypeRepository {
	return &ActionTypeRepository{BaseRepository: NewBaseRepository(db, actionTypeMapping())}
}

func actionTypeMapping() Mapping[*models.ActionType] {
	return Mapping[*models.ActionType]{
		Table:    "action_types",
		Resource: "action type",
		Columns: []string{
			"id", "organization_id", "name", "description",
			"created_at", "updated_at", "deleted_at",
		},
		ScanRow: func(scan func(dest ...interface{}) error) (*models.ActionType, error) {
			a := &models.ActionType{}
			err := scan(
				&a.ID, &a.OrganizationID, &a.Name, &a.Description,
				&a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
			)
			if err != nil {
				return nil, err
			}
			return a, nil
		},
		InsertColumns: []string{"id", "organization_id", "name", "description"},
		InsertArgs: func(a *models.ActionType) []interface{} {
			return []interface{}{a.ID, a.OrganizationID, a.Name, a.Description}
		},
		UpdatableColumns: []string{"name", "description"},
	}
}
