// category_repository.go binds the generic repository to the categories
// reference table.
package repositories

import (
	"github.com/jmoiron/sqlx"

	"github.com/audittrail/audittrail/internal/db/models"
)

// CategoryRepository stores audit log categories.
type CategoryRepository struct {
	*BaseRepository[*models.Category]
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{BaseRepository: NewBaseRepository(db, categoryMapping())}
}

func categoryMapping() Mapping[*models.Category] {
	return Mapping[*models.Category]{
		Table:    "categories",
		Resource: "category",
		Columns: []string{
			"id", "organization_id", "name", "description",
			"created_at", "updated_at", "deleted_at",
		},
		ScanRow: func(scan func(dest ...interface{}) error) (*models.Category, error) {
			c := &models.Category{}
			err := scan(
				&c.ID, &c.OrganizationID, &c.Name, &c.Description,
				&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
			)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		InsertColumns: []string{"id", "organization_id", "name", "description"},
		InsertArgs: func(c *models.Category) []interface{} {
			return []interface{}{c.ID, c.OrganizationID, c.Name, c.Description}
		},
		UpdatableColumns: []string{"name", "description"},
	}
}
