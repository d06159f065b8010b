package deals

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort abstracts deal persistence. Reads return rows without
// any authorization applied; the service decides visibility.
type RepositoryPort interface {
	GetDeal(ctx context.Context, id uuid.UUID) (Deal, error)
	ListDealsByTenant(ctx context.Context, tenantID uuid.UUID) ([]Deal, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepositoryPort) error) error
}

// TxRepositoryPort is the transactional slice of the port. Update and
// delete re-read the row with a lock so the authorization check and the
// write observe the same state.
type TxRepositoryPort interface {
	InsertDeal(ctx context.Context, deal Deal) error
	GetDealForUpdate(ctx context.Context, id uuid.UUID) (Deal, error)
	UpdateDeal(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteDeal(ctx context.Context, id uuid.UUID) error
}
