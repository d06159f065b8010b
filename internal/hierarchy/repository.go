package hierarchy

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort defines data access methods for the role tree.
type RepositoryPort interface {
	GetRole(ctx context.Context, id uuid.UUID) (Role, error)
	GetDefinition(ctx context.Context, key string) (Definition, error)
	ListRoles(ctx context.Context, tenantID uuid.UUID) ([]Role, error)
	CountProfiles(ctx context.Context, roleID uuid.UUID) (int64, error)
	CountChildren(ctx context.Context, roleID uuid.UUID) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepositoryPort) error) error
}

// TxRepositoryPort groups the mutations that must commit atomically.
type TxRepositoryPort interface {
	InsertRole(ctx context.Context, role Role) error
	SeedRolePermissions(ctx context.Context, roleID uuid.UUID, slugs []string) error
	DeleteRole(ctx context.Context, id uuid.UUID) (int64, error)
	UpdateParent(ctx context.Context, roleID, parentID uuid.UUID) error
	RebasePaths(ctx context.Context, tenantID uuid.UUID, oldPrefix, newPrefix Path) error
}
