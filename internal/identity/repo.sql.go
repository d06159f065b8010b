package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = `id, tenant_id, role_id, email, name, password_hash, is_active, cached_permissions, created_at, updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.TenantID, &p.RoleID, &p.Email, &p.Name,
		&p.PasswordHash, &p.IsActive, &p.CachedPermissions, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, shared.ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// GetProfile fetches a profile by principal id.
func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

// GetProfileByEmail fetches a profile by email.
func (r *Repository) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
	return scanProfile(row)
}

// GetRolePath returns the materialized path of a role.
func (r *Repository) GetRolePath(ctx context.Context, roleID uuid.UUID) (hierarchy.Path, error) {
	var path string
	err := r.pool.QueryRow(ctx, `SELECT path FROM roles WHERE id = $1`, roleID).Scan(&path)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return hierarchy.Path(path), nil
}

// InsertProfile persists a profile with its prebuilt permission cache.
func (r *Repository) InsertProfile(ctx context.Context, p Profile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (id, tenant_id, role_id, email, name, password_hash, is_active, cached_permissions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.TenantID, p.RoleID, p.Email, p.Name, p.PasswordHash, p.IsActive, p.CachedPermissions)
	return err
}

// ListRoleSlugs returns the permission slugs directly assigned to a role.
func (r *Repository) ListRoleSlugs(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.slug FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.slug
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slugs := []string{}
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// UpdateCachedPermissions sets cached_permissions for every profile of the
// role, returning how many rows were touched.
func (r *Repository) UpdateCachedPermissions(ctx context.Context, roleID uuid.UUID, slugs []string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles SET cached_permissions = $2, updated_at = now() WHERE role_id = $1
	`, roleID, slugs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListRoleIDs returns every role id, for cache reconciliation.
func (r *Repository) ListRoleIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
