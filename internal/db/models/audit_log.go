// Package models - audit_log.go defines the AuditLog model recording who did
// what to which resource: actor, HTTP method and URL, the change and response
// payloads, and optional classification references.
package models

import "time"

// AuditLog represents a single recorded action within an organization.
// CategoryID, SubCategoryID, and ActionTypeID are optional references to the
// classification tables; a nil reference means the record is unclassified on
// that axis.
type AuditLog struct {
	ID             string
	OrganizationID int64
	FacilityID     *int64
	UserID         int64
	UserRoles      []string
	Method         string
	URL            string
	Changes        map[string]interface{} // JSONB: what the action modified
	Response       map[string]interface{} // JSONB: what the caller was told
	CategoryID     *string
	SubCategoryID  *string
	ActionTypeID   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// EntityID implements Entity.
func (l *AuditLog) EntityID() string { return l.ID }

// EntityOrganization implements Entity.
func (l *AuditLog) EntityOrganization() int64 { return l.OrganizationID }

// AssignIdentity implements Entity.
func (l *AuditLog) AssignIdentity(id string, organizationID int64) {
	l.ID = id
	l.OrganizationID = organizationID
}
