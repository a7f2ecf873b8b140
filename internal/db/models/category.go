// Package models - category.go defines the Category reference table: the top
// level of the three-axis classification applied to audit log records.
package models

import "time"

// Category is an organization-owned classification label. Audit logs
// back-reference categories; deleting a category never cascades.
type Category struct {
	ID             string
	OrganizationID int64
	Name           string
	Description    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// EntityID implements Entity.
func (c *Category) EntityID() string { return c.ID }

// EntityOrganization implements Entity.
func (c *Category) EntityOrganization() int64 { return c.OrganizationID }

// AssignIdentity implements Entity.
func (c *Category) AssignIdentity(id string, organizationID int64) {
	c.ID = id
	c.OrganizationID = organizationID
}
