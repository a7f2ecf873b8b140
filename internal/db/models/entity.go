// Package models defines the persisted entity types of the audit service.
// entity.go declares the contract the generic repository operates on.
package models

// Entity is implemented by every persisted type. It exposes just enough
// identity for the generic repository: the row's identifier for cursors, the
// owning organization for partition checks, and a hook for stamping a fresh
// identity on create.
type Entity interface {
	// EntityID returns the entity's identifier.
	EntityID() string
	// EntityOrganization returns the owning organization.
	EntityOrganization() int64
	// AssignIdentity stamps a new identifier and organization onto the entity.
	// Called by the repository on create; any identity already present in the
	// payload is overwritten.
	AssignIdentity(id string, organizationID int64)
}
