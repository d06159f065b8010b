package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
	"github.com/lattice-crm/lattice-crm/internal/identity"
	"github.com/lattice-crm/lattice-crm/internal/permissions"
)

// The role and permission handlers sit below identity in the import
// graph, so each declares a minimal caller-resolver interface. These
// adapters satisfy them from the identity service's bindings.

type hierarchyCallerResolver struct {
	identity identity.Resolver
}

func (a hierarchyCallerResolver) ResolveCaller(ctx context.Context, principalID uuid.UUID) (hierarchy.Caller, error) {
	binding, err := a.identity.Resolve(ctx, principalID)
	if err != nil {
		return hierarchy.Caller{}, err
	}
	return hierarchy.Caller{TenantID: binding.TenantID, Can: binding.HasPermission}, nil
}

type permissionsCallerResolver struct {
	identity identity.Resolver
}

func (a permissionsCallerResolver) ResolveCaller(ctx context.Context, principalID uuid.UUID) (permissions.Caller, error) {
	binding, err := a.identity.Resolve(ctx, principalID)
	if err != nil {
		return permissions.Caller{}, err
	}
	return permissions.Caller{TenantID: binding.TenantID, Can: binding.HasPermission}, nil
}

type roleDirectory struct {
	hierarchy *hierarchy.Service
}

func (d roleDirectory) RoleTenant(ctx context.Context, roleID uuid.UUID) (uuid.UUID, error) {
	role, err := d.hierarchy.GetRole(ctx, roleID)
	if err != nil {
		return uuid.Nil, err
	}
	return role.TenantID, nil
}
