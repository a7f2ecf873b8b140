// Package models - sub_category.go defines the SubCategory reference table:
// the second axis of audit log classification.
package models

import "time"

// SubCategory is an organization-owned classification label one level below
// Category. The two tables are not linked to each other; an audit log may
// carry either, both, or neither.
type SubCategory struct {
	ID             string
	OrganizationID int64
	Name           string
	Description    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// EntityID implements Entity.
func (s *SubCategory) EntityID() string { return s.ID }

// EntityOrganization implements Entity.
func (s *SubCategory) EntityOrganization() int64 { return s.OrganizationID }

// AssignIdentity implements Entity.
func (s *SubCategory) AssignIdentity(id string, organizationID int64) {
	s.ID = id
	s.OrganizationID = organizationID
}
