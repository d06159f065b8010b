package shared

import "errors"

var (
	// ErrNotFound indicates the resource is absent, cross-tenant, or
	// otherwise indistinguishable from absent for the caller.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the access decision denied the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput indicates a malformed or type-mismatched command payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidParent indicates the parent role is missing, belongs to a
	// different tenant, or would form a cycle.
	ErrInvalidParent = errors.New("invalid parent role")
	// ErrRoleInUse indicates a role still has principals bound to it.
	ErrRoleInUse = errors.New("role in use")
	// ErrRoleHasDependents indicates a role still has child roles.
	ErrRoleHasDependents = errors.New("role has dependent roles")
	// ErrCrossTenantForbidden indicates an attempt to move a role across tenants.
	ErrCrossTenantForbidden = errors.New("cross-tenant role change forbidden")
	// ErrDuplicatePermission indicates a unique-slug violation on permission creation.
	ErrDuplicatePermission = errors.New("duplicate permission slug")
)
