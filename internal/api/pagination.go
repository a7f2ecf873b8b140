// pagination.go parses the shared items_per_page/last_id query parameters.
package api

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/audittrail/audittrail/internal/config"
	"github.com/audittrail/audittrail/internal/db/repositories"
)

// parsePagination reads the page request from the query string. An omitted
// items_per_page falls back to the configured default; values above the
// configured maximum are rejected rather than silently clamped so callers
// notice a limit they rely on.
func parsePagination(c *gin.Context, cfg config.PaginationConfig) (repositories.Pagination, error) {
	p := repositories.Pagination{
		ItemsPerPage: cfg.DefaultItemsPerPage,
		LastID:       c.Query("last_id"),
	}

	if raw := c.Query("items_per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return repositories.Pagination{}, fmt.Errorf("items_per_page must be a positive integer")
		}
		if n > cfg.MaxItemsPerPage {
			return repositories.Pagination{}, fmt.Errorf("items_per_page must not exceed %d", cfg.MaxItemsPerPage)
		}
		p.ItemsPerPage = n
	}

	return p, nil
}
