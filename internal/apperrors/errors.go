// Package apperrors defines the three error kinds the audit service surfaces
// to callers — validation failures, not-found lookups, and store failures —
// along with the localized message catalog used to render them.
//
// The kinds are deliberately coarse: a caller can act on "your reference did
// not resolve", "that record does not exist", and "the store misbehaved", and
// nothing finer. In particular, "exists in another organization" is reported
// as an ordinary not-found so that probing requests cannot learn whether an
// identifier exists elsewhere; the distinction is kept internally (see
// NotFoundError.CrossOrganization) for logs and metrics only.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// ReferenceKind names one of the optional classification references an audit
// log may carry.
type ReferenceKind string

// The three resolvable reference kinds.
const (
	ReferenceCategory    ReferenceKind = "category"
	ReferenceSubCategory ReferenceKind = "sub_category"
	ReferenceActionType  ReferenceKind = "action_type"
)

// UnresolvedReference records one supplied-but-unresolvable reference.
type UnresolvedReference struct {
	Kind ReferenceKind `json:"kind"`
	ID   string        `json:"id"`
}

// ValidationError reports references that were supplied on a create request
// but did not resolve to a live entity in the caller's organization. A request
// with several bad references reports all of them.
type ValidationError struct {
	Unresolved []UnresolvedReference
}

// Error implements error.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Unresolved))
	for _, ref := range e.Unresolved {
		parts = append(parts, fmt.Sprintf("%s %q", ref.Kind, ref.ID))
	}
	return "unresolved references: " + strings.Join(parts, ", ")
}

// NewValidation builds a ValidationError from one or more unresolved
// references.
func NewValidation(unresolved ...UnresolvedReference) *ValidationError {
	return &ValidationError{Unresolved: unresolved}
}

// NotFoundError reports a lookup that matched no live entity in the caller's
// organization.
type NotFoundError struct {
	Resource string
	ID       string

	// CrossOrganization is set when the identifier did resolve, but to an
	// entity owned by a different organization. It exists for observability
	// only: callers receive a message identical to a plain miss, and the flag
	// is never serialized.
	CrossOrganization bool
}

// Error implements error.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// NewNotFound reports a plain miss for the named resource.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewCrossOrganizationNotFound reports an identifier that exists in another
// organization. Externally indistinguishable from NewNotFound.
func NewCrossOrganizationNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id, CrossOrganization: true}
}

// StoreError wraps any failure surfaced by the underlying store client. It is
// never recovered locally; the operation that hit it fails immediately.
type StoreError struct {
	Op  string // repository operation, e.g. "create audit_logs"
	Err error
}

// Error implements error.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the driver error for errors.Is/As.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStore wraps a store failure with the operation that triggered it.
func NewStore(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
