package hierarchy

import (
	"time"

	"github.com/google/uuid"
)

// Role is a node in a tenant-scoped tree. Hierarchy confers visibility
// reach via ancestry, never permissions.
type Role struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	DefinitionID uuid.UUID
	Name         string
	ParentRoleID *uuid.UUID
	Path         Path
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsRoot reports whether the role is its tenant's root (Owner) role.
func (r Role) IsRoot() bool {
	return r.ParentRoleID == nil
}

// Definition is a named role template shared across tenants, used only to
// seed default permission sets at role creation. Not security-relevant at
// runtime.
type Definition struct {
	ID                 uuid.UUID
	Key                string
	Name               string
	DefaultPermissions []string
}

// Well-known definition keys.
const (
	DefinitionOwner    = "OWNER"
	DefinitionManager  = "MANAGER"
	DefinitionEmployee = "EMPLOYEE"
)
