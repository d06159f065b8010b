package tenants

import (
	"context"

	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
)

// ProvisionRecord is the fully computed state of a new tenant: the
// tenant row, its root Owner role, and the first profile with its cache
// already built. The service computes every field; the repository only
// persists them in one transaction, seeding the role's permissions from
// the definition defaults.
type ProvisionRecord struct {
	Tenant Tenant

	OwnerRoleID       uuid.UUID
	OwnerRoleName     string
	OwnerDefinitionID uuid.UUID
	OwnerRolePath     hierarchy.Path

	ProfileID    uuid.UUID
	Email        string
	ProfileName  string
	PasswordHash string
}

// RepositoryPort abstracts tenant persistence.
type RepositoryPort interface {
	GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (Tenant, error)
	ListTenants(ctx context.Context) ([]Tenant, error)
	GetDefinitionID(ctx context.Context, key string) (uuid.UUID, error)

	// Provision persists the record atomically: tenant, root role,
	// seeded role permissions and the owner profile either all exist
	// afterwards or none do.
	Provision(ctx context.Context, rec ProvisionRecord) error

	// Remove deletes the tenant; roles, profiles and deals go with it.
	Remove(ctx context.Context, id uuid.UUID) error
}
