// sub_category_repository.go binds the generic repository to the
// sub_categories reference table.
package repositories

import (
	"github.com/jmoiron/sqlx"

	"github.com/audittrail/audittrail/internal/db/models"
)

// SubCategoryRepository stores audit log sub-categories.
type SubCategoryRepository struct {
	*BaseRepository[*models.SubCategory]
}

// NewSubCategoryRepository creates a new SubCategoryRepository.
func NewSubCategoryRepository(db *sqlx.DB) *SubCategoryRepository {
	return &SubCategoryRepository{BaseRepository: NewBaseRepository(db, subCategoryMapping())}
}

func subCategoryMapping() Mapping[*models.SubCategory] {
	return Mapping[*models.SubCategory]{
		Table:    "sub_categories",
		Resource: "sub-category",
		Columns: []string{
			"id", "organization_id", "name", "description",
			"created_at", "updated_at", "deleted_at",
		},
		ScanRow: func(scan func(dest ...interface{}) error) (*models.SubCategory, error) {
			s := &models.SubCategory{}
			err := scan(
				&s.ID, &s.OrganizationID, &s.Name, &s.Description,
				&s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
			)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		InsertColumns: []string{"id", "organization_id", "name", "description"},
		InsertArgs: func(s *models.SubCategory) []interface{} {
			return []interface{}{s.ID, s.OrganizationID, s.Name, s.Description}
		},
		UpdatableColumns: []string{"name", "description"},
	}
}
