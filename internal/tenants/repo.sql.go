package tenants

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-crm/lattice-crm/internal/platform/db"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for tenants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tenantColumns = `id, name, slug, created_at, updated_at`

func scanTenant(row pgx.Row) (Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, shared.ErrNotFound
		}
		return Tenant{}, err
	}
	return t, nil
}

// GetTenant fetches a tenant by id.
func (r *Repository) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// GetTenantBySlug fetches a tenant by its unique slug.
func (r *Repository) GetTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)
	return scanTenant(row)
}

// ListTenants returns every tenant ordered by slug.
func (r *Repository) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tenants, nil
}

// GetDefinitionID resolves a role definition key to its id.
func (r *Repository) GetDefinitionID(ctx context.Context, key string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM role_definitions WHERE key = $1`, key).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, shared.ErrNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

// Provision persists the tenant, its root role, the role's seeded
// permissions and the owner profile in one transaction. The profile's
// cache is built from the role_permissions rows written moments before,
// so the first principal is usable the instant the commit lands.
func (r *Repository) Provision(ctx context.Context, rec ProvisionRecord) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tenants (id, name, slug) VALUES ($1, $2, $3)
		`, rec.Tenant.ID, rec.Tenant.Name, rec.Tenant.Slug)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO roles (id, tenant_id, definition_id, name, parent_role_id, path)
			VALUES ($1, $2, $3, $4, NULL, $5)
		`, rec.OwnerRoleID, rec.Tenant.ID, rec.OwnerDefinitionID, rec.OwnerRoleName, string(rec.OwnerRolePath))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1, p.id
			FROM permissions p
			JOIN role_definitions d ON d.id = $2
			WHERE p.slug = ANY(d.default_permissions)
			ON CONFLICT DO NOTHING
		`, rec.OwnerRoleID, rec.OwnerDefinitionID)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO profiles (id, tenant_id, role_id, email, name, password_hash, is_active, cached_permissions)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, (
				SELECT coalesce(array_agg(p.slug ORDER BY p.slug), '{}')
				FROM role_permissions rp
				JOIN permissions p ON p.id = rp.permission_id
				WHERE rp.role_id = $3
			))
		`, rec.ProfileID, rec.Tenant.ID, rec.OwnerRoleID, rec.Email, rec.ProfileName, rec.PasswordHash)
		return err
	})
}

// Remove deletes a tenant. Roles, profiles and deals are removed by
// foreign key cascade.
func (r *Repository) Remove(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
