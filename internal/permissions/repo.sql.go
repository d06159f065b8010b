package permissions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-crm/lattice-crm/internal/platform/db"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for permissions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

// GetPermissionBySlug fetches a permission by slug.
func (r *Repository) GetPermissionBySlug(ctx context.Context, slug string) (Permission, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx,
		`SELECT id, slug, description, created_at FROM permissions WHERE slug = $1`, slug,
	).Scan(&perm.ID, &perm.Slug, &perm.Description, &perm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return perm, nil
}

// ListPermissions returns all permissions ordered by slug.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, slug, description, created_at FROM permissions ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Slug, &perm.Description, &perm.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// CreatePermission inserts a permission, mapping the unique-slug
// constraint to ErrDuplicatePermission.
func (r *Repository) CreatePermission(ctx context.Context, perm Permission) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO permissions (id, slug, description) VALUES ($1, $2, $3)
	`, perm.ID, perm.Slug, perm.Description)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ErrDuplicatePermission
		}
		return err
	}
	return nil
}

// UpsertPermission inserts or refreshes a permission's description.
func (r *Repository) UpsertPermission(ctx context.Context, perm Permission) (Permission, error) {
	var stored Permission
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (id, slug, description) VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET description = EXCLUDED.description
		RETURNING id, slug, description, created_at
	`, perm.ID, perm.Slug, perm.Description).Scan(&stored.ID, &stored.Slug, &stored.Description, &stored.CreatedAt)
	if err != nil {
		return Permission{}, err
	}
	return stored, nil
}

// ListRolePermissionIDs returns the permission ids attached to a role.
func (r *Repository) ListRolePermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT permission_id FROM role_permissions WHERE role_id = $1`, roleID)
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

// WithTx runs fn within a single transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepositoryPort) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// AttachPermission inserts a role-permission edge.
func (t *txRepository) AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, roleID, permissionID)
	return err
}

// DetachPermission removes a role-permission edge.
func (t *txRepository) DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2
	`, roleID, permissionID)
	return err
}

// RoleSlugs returns the slugs currently assigned to the role, as seen by
// this transaction.
func (t *txRepository) RoleSlugs(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := t.tx.Query(ctx, `
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

// RefreshProfileCaches rewrites cached_permissions for the role's
// profiles inside the surrounding transaction.
func (t *txRepository) RefreshProfileCaches(ctx context.Context, roleID uuid.UUID, slugs []string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE profiles SET cached_permissions = $2, updated_at = now() WHERE role_id = $1
	`, roleID, slugs)
	return err
}
