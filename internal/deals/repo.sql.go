package deals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-crm/lattice-crm/internal/access"
	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
	"github.com/lattice-crm/lattice-crm/internal/platform/db"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for deals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const dealColumns = `id, tenant_id, title, amount, visibility, owner_role_path, pipeline_id, stage_id, created_by, created_at, updated_at`

func scanDeal(row pgx.Row) (Deal, error) {
	var d Deal
	var visibility, path string
	err := row.Scan(&d.ID, &d.TenantID, &d.Title, &d.Amount, &visibility, &path,
		&d.PipelineID, &d.StageID, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Deal{}, shared.ErrNotFound
		}
		return Deal{}, err
	}
	d.Visibility = access.Visibility(visibility)
	d.OwnerRolePath = hierarchy.Path(path)
	return d, nil
}

// GetDeal fetches a deal by id without authorization applied.
func (r *Repository) GetDeal(ctx context.Context, id uuid.UUID) (Deal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id)
	return scanDeal(row)
}

// ListDealsByTenant returns all deals of a tenant, newest first.
func (r *Repository) ListDealsByTenant(ctx context.Context, tenantID uuid.UUID) ([]Deal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE tenant_id = $1 ORDER BY created_at DESC, id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deals, nil
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

// InsertDeal persists a new deal with its stamped tenant and owner path.
func (t *txRepository) InsertDeal(ctx context.Context, deal Deal) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO deals (id, tenant_id, title, amount, visibility, owner_role_path, pipeline_id, stage_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, deal.ID, deal.TenantID, deal.Title, deal.Amount, string(deal.Visibility),
		string(deal.OwnerRolePath), deal.PipelineID, deal.StageID, deal.CreatedBy)
	return err
}

// GetDealForUpdate re-reads a deal under a row lock.
func (t *txRepository) GetDealForUpdate(ctx context.Context, id uuid.UUID) (Deal, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1 FOR UPDATE`, id)
	return scanDeal(row)
}

// updateColumns maps sanitized patch fields to columns. The map doubles
// as a guard: a field outside it can never reach the SQL text.
var updateColumns = map[string]string{
	"title":       "title",
	"amount":      "amount",
	"visibility":  "visibility",
	"pipeline_id": "pipeline_id",
	"stage_id":    "stage_id",
}

// UpdateDeal applies an already sanitized patch.
func (t *txRepository) UpdateDeal(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	sets := make([]string, 0, len(updates)+1)
	args := make([]any, 0, len(updates)+1)
	args = append(args, id)
	for field, value := range updates {
		column, ok := updateColumns[field]
		if !ok {
			return fmt.Errorf("%w: unknown field %q", shared.ErrInvalidInput, field)
		}
		if v, isVis := value.(access.Visibility); isVis {
			value = string(v)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	sets = append(sets, "updated_at = now()")

	tag, err := t.tx.Exec(ctx,
		`UPDATE deals SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteDeal removes a deal by id.
func (t *txRepository) DeleteDeal(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
