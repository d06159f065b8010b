package hierarchy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-crm/lattice-crm/internal/platform/db"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the role tree.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, tenant_id, definition_id, name, parent_role_id, path, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	var path string
	err := row.Scan(&role.ID, &role.TenantID, &role.DefinitionID, &role.Name,
		&role.ParentRoleID, &path, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	role.Path = Path(path)
	return role, nil
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

// GetDefinition fetches a role definition by key.
func (r *Repository) GetDefinition(ctx context.Context, key string) (Definition, error) {
	var def Definition
	err := r.pool.QueryRow(ctx,
		`SELECT id, key, name, default_permissions FROM role_definitions WHERE key = $1`, key,
	).Scan(&def.ID, &def.Key, &def.Name, &def.DefaultPermissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Definition{}, shared.ErrNotFound
		}
		return Definition{}, err
	}
	return def, nil
}

// ListRoles returns all roles of a tenant ordered by path.
func (r *Repository) ListRoles(ctx context.Context, tenantID uuid.UUID) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE tenant_id = $1 ORDER BY path`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// CountProfiles returns the number of profiles bound to the role.
func (r *Repository) CountProfiles(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM profiles WHERE role_id = $1`, roleID).Scan(&count)
	return count, err
}

// CountChildren returns the number of direct child roles.
func (r *Repository) CountChildren(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM roles WHERE parent_role_id = $1`, roleID).Scan(&count)
	return count, err
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

// InsertRole persists a role together with its computed path.
func (t *txRepository) InsertRole(ctx context.Context, role Role) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO roles (id, tenant_id, definition_id, name, parent_role_id, path)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, role.ID, role.TenantID, role.DefinitionID, role.Name, role.ParentRoleID, string(role.Path))
	return err
}

// SeedRolePermissions attaches the definition's default permissions to a
// freshly created role.
func (t *txRepository) SeedRolePermissions(ctx context.Context, roleID uuid.UUID, slugs []string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, p.id FROM permissions p WHERE p.slug = ANY($2)
		ON CONFLICT DO NOTHING
	`, roleID, slugs)
	return err
}

// DeleteRole removes a role by id.
func (t *txRepository) DeleteRole(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdateParent re-parents a role. Tenant is deliberately not updatable.
func (t *txRepository) UpdateParent(ctx context.Context, roleID, parentID uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE roles SET parent_role_id = $2, updated_at = now() WHERE id = $1
	`, roleID, parentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RebasePaths rewrites the paths of the moved subtree in one statement.
func (t *txRepository) RebasePaths(ctx context.Context, tenantID uuid.UUID, oldPrefix, newPrefix Path) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE roles
		SET path = $3 || substr(path, length($2) + 1), updated_at = now()
		WHERE tenant_id = $1 AND (path = $2 OR path LIKE $2 || '.%')
	`, tenantID, string(oldPrefix), string(newPrefix))
	return err
}
