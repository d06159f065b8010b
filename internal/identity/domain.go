package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/access"
	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
)

// Profile is a tenant member bound to exactly one role.
// CachedPermissions is a denormalized materialization of the permissions
// attached to RoleID directly — never to ancestor or descendant roles —
// and is kept equal to the live role-permission set by the invalidation
// protocol.
type Profile struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	RoleID            uuid.UUID
	Email             string
	Name              string
	PasswordHash      string
	IsActive          bool
	CachedPermissions []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Binding is the trusted server-side identity the engine authorizes
// against. It is resolved from the stored profile only; client-supplied
// tenant identifiers are never consulted.
type Binding struct {
	PrincipalID uuid.UUID
	TenantID    uuid.UUID
	RoleID      uuid.UUID
	RolePath    hierarchy.Path
	Permissions access.PermissionSet
}

// Requester adapts the binding for the decision engine.
func (b Binding) Requester() access.Requester {
	return access.Requester{
		TenantID:    b.TenantID,
		RolePath:    b.RolePath,
		Permissions: b.Permissions,
	}
}

// HasPermission reads only from the cached set. It never recomputes from
// role-permission rows.
func (b Binding) HasPermission(slug string) bool {
	return b.Permissions.Has(slug)
}
