// Package access implements the visibility and permission decision engine.
// Every function here is pure: decisions are computed from already
// resolved inputs and have no side effects, so the same engine serves both
// the mutation gateway and row-level read filtering.
package access

import (
	"sort"

	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
)

// Operation is the kind of access being requested.
type Operation int

const (
	OpRead Operation = iota
	OpCreate
	OpUpdate
	OpDelete
)

// String returns the operation name for logging and metrics labels.
func (op Operation) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Visibility is the per-resource read-reach policy.
type Visibility string

const (
	VisibilityPrivate    Visibility = "PRIVATE"
	VisibilityPublic     Visibility = "PUBLIC"
	VisibilityControlled Visibility = "CONTROLLED"
)

// Valid reports whether v is one of the known visibility values.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic, VisibilityControlled:
		return true
	}
	return false
}

// PermissionSet is an O(1)-membership view over a principal's cached
// permission slugs. Checks never fall back to a live role-permission
// join; the cache is the authority.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from cached permission slugs.
func NewPermissionSet(slugs []string) PermissionSet {
	set := make(PermissionSet, len(slugs))
	for _, slug := range slugs {
		set[slug] = struct{}{}
	}
	return set
}

// Has reports set membership for a permission slug.
func (s PermissionSet) Has(slug string) bool {
	_, ok := s[slug]
	return ok
}

// Slugs returns the sorted slugs, mainly for responses and tests.
func (s PermissionSet) Slugs() []string {
	slugs := make([]string, 0, len(s))
	for slug := range s {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Requester is the resolved caller: tenant and role path come from the
// stored profile, never from the request.
type Requester struct {
	TenantID    uuid.UUID
	RolePath    hierarchy.Path
	Permissions PermissionSet
}

// Target is the resource state the decision is computed against.
type Target struct {
	TenantID      uuid.UUID
	OwnerRolePath hierarchy.Path
	Visibility    Visibility
}

// Decide computes allow/deny for op against target. requiredPerm is the
// permission slug demanded by the operation; it is ignored for reads.
//
// Rules, in order:
//  1. Tenant mismatch denies unconditionally, before any hierarchy or
//     permission logic.
//  2. READ allows when visibility is PUBLIC or CONTROLLED, or when the
//     requester's role path is an ancestor of (or equal to) the owner
//     path. CONTROLLED reads behave exactly like PUBLIC; the value is
//     reserved for stricter write policies.
//  3. CREATE allows on permission alone; hierarchy and visibility do not
//     apply because the created resource always carries the creator's
//     own tenant and role path.
//  4. UPDATE/DELETE require both hierarchy reach (self or ancestor) and
//     the permission. Either one alone denies.
func Decide(req Requester, target Target, op Operation, requiredPerm string) bool {
	if req.TenantID != target.TenantID {
		return false
	}

	switch op {
	case OpRead:
		if target.Visibility == VisibilityPublic || target.Visibility == VisibilityControlled {
			return true
		}
		return req.RolePath.IsAncestorOrEqual(target.OwnerRolePath)
	case OpCreate:
		return req.Permissions.Has(requiredPerm)
	case OpUpdate, OpDelete:
		if !req.RolePath.IsAncestorOrEqual(target.OwnerRolePath) {
			return false
		}
		return req.Permissions.Has(requiredPerm)
	}
	return false
}

// CanRead is the row-filter predicate exposed to listing queries. It
// applies exactly the READ rule of Decide.
func CanRead(req Requester, target Target) bool {
	return Decide(req, target, OpRead, "")
}
