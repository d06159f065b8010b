package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
)

// RepositoryPort defines data access methods for profiles and their
// permission caches.
type RepositoryPort interface {
	GetProfile(ctx context.Context, id uuid.UUID) (Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (Profile, error)
	GetRolePath(ctx context.Context, roleID uuid.UUID) (hierarchy.Path, error)
	InsertProfile(ctx context.Context, profile Profile) error
	ListRoleSlugs(ctx context.Context, roleID uuid.UUID) ([]string, error)
	UpdateCachedPermissions(ctx context.Context, roleID uuid.UUID, slugs []string) (int64, error)
	ListRoleIDs(ctx context.Context) ([]uuid.UUID, error)
}
