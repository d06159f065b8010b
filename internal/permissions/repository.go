package permissions

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort defines data access methods for the permission registry
// and role-permission edges.
type RepositoryPort interface {
	GetPermissionBySlug(ctx context.Context, slug string) (Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	CreatePermission(ctx context.Context, perm Permission) error
	UpsertPermission(ctx context.Context, perm Permission) (Permission, error)
	ListRolePermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepositoryPort) error) error
}

// TxRepositoryPort groups the edge mutation and the cache refresh that
// must commit as one unit. Keeping the refresh inside the same
// transaction is what removes the staleness window: once a grant or
// revoke returns, every affected principal's cache reflects it.
type TxRepositoryPort interface {
	AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error
	DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error
	RoleSlugs(ctx context.Context, roleID uuid.UUID) ([]string, error)
	RefreshProfileCaches(ctx context.Context, roleID uuid.UUID, slugs []string) error
}
