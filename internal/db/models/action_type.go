// Package models - action_type.go defines the ActionType reference table: the
// third axis of audit log classification (e.g. "create", "export", "login").
package models

import "time"

// ActionType is an organization-owned classification label describing the
// kind of action an audit log records.
type ActionType struct {
	ID             string
	OrganizationID int64
	Name           string
	Description    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// EntityID implements Entity.
func (a *ActionType) EntityID() string { return a.ID }

// EntityOrganization implements Entity.
func (a *ActionType) EntityOrganization() int64 { return a.OrganizationID }

// AssignIdentity implements Entity.
func (a *ActionType) AssignIdentity(id string, organizationID int64) {
	a.ID = id
	a.OrganizationID = organizationID
}
