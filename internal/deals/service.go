package deals

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/access"
	"github.com/lattice-crm/lattice-crm/internal/identity"
	"github.com/lattice-crm/lattice-crm/internal/permissions"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Resolver turns a principal id into its trusted binding. The gateway
// resolves every command through it and never reads tenant or role
// fields off the request.
type Resolver interface {
	Resolve(ctx context.Context, principalID uuid.UUID) (identity.Binding, error)
}

// DecisionRecorder observes engine outcomes, typically a metrics
// counter. A nil recorder is fine.
type DecisionRecorder interface {
	RecordDecision(op access.Operation, allowed bool)
}

// Service is the exclusive write path for deals. Every command resolves
// the caller's binding, runs the decision engine, and commits in a
// single transaction; denied or cross-tenant mutations read as
// not-found wherever that hides resource existence.
type Service struct {
	repo     RepositoryPort
	resolver Resolver
	recorder DecisionRecorder
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver Resolver, recorder DecisionRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, recorder: recorder, logger: logger}
}

// Create inserts a deal owned by the caller. Tenant and owner role path
// come from the binding; the request cannot influence either.
func (s *Service) Create(ctx context.Context, principalID uuid.UUID, req CreateDealRequest) (Deal, error) {
	binding, err := s.resolver.Resolve(ctx, principalID)
	if err != nil {
		return Deal{}, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return Deal{}, fmt.Errorf("%w: title required", shared.ErrInvalidInput)
	}
	visibility := access.Visibility(req.Visibility)
	if !visibility.Valid() {
		return Deal{}, fmt.Errorf("%w: invalid visibility %q", shared.ErrInvalidInput, req.Visibility)
	}
	if req.Amount < 0 {
		return Deal{}, fmt.Errorf("%w: amount must be non-negative", shared.ErrInvalidInput)
	}

	allowed := access.Decide(binding.Requester(), access.Target{TenantID: binding.TenantID}, access.OpCreate, permissions.PermDealsCreate)
	s.record(access.OpCreate, allowed)
	if !allowed {
		return Deal{}, shared.ErrForbidden
	}

	deal := Deal{
		ID:            uuid.New(),
		TenantID:      binding.TenantID,
		Title:         title,
		Amount:        req.Amount,
		Visibility:    visibility,
		OwnerRolePath: binding.RolePath,
		PipelineID:    req.PipelineID,
		StageID:       req.StageID,
		CreatedBy:     binding.PrincipalID,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepositoryPort) error {
		return tx.InsertDeal(ctx, deal)
	})
	if err != nil {
		return Deal{}, err
	}

	s.log("deal created", binding, slog.String("deal_id", deal.ID.String()))
	return deal, nil
}

// Update applies a sanitized partial update. The row is re-read under
// lock inside the transaction so the decision and the write cannot
// straddle a concurrent change.
func (s *Service) Update(ctx context.Context, principalID, dealID uuid.UUID, req UpdateDealRequest) (Deal, error) {
	binding, err := s.resolver.Resolve(ctx, principalID)
	if err != nil {
		return Deal{}, err
	}
	updates, err := sanitizeUpdates(req.Updates)
	if err != nil {
		return Deal{}, err
	}

	var updated Deal
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepositoryPort) error {
		deal, err := tx.GetDealForUpdate(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.TenantID != binding.TenantID {
			// Cross-tenant rows do not exist as far as the caller can tell.
			return shared.ErrNotFound
		}
		allowed := access.Decide(binding.Requester(), deal.Target(), access.OpUpdate, permissions.PermDealsUpdate)
		s.record(access.OpUpdate, allowed)
		if !allowed {
			return shared.ErrForbidden
		}
		if len(updates) == 0 {
			updated = deal
			return nil
		}
		if err := tx.UpdateDeal(ctx, dealID, updates); err != nil {
			return err
		}
		updated, err = tx.GetDealForUpdate(ctx, dealID)
		return err
	})
	if err != nil {
		return Deal{}, err
	}

	s.log("deal updated", binding, slog.String("deal_id", dealID.String()))
	return updated, nil
}

// Delete removes a deal under the same reach-and-permission rule as
// Update.
func (s *Service) Delete(ctx context.Context, principalID, dealID uuid.UUID) error {
	binding, err := s.resolver.Resolve(ctx, principalID)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepositoryPort) error {
		deal, err := tx.GetDealForUpdate(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.TenantID != binding.TenantID {
			return shared.ErrNotFound
		}
		allowed := access.Decide(binding.Requester(), deal.Target(), access.OpDelete, permissions.PermDealsDelete)
		s.record(access.OpDelete, allowed)
		if !allowed {
			return shared.ErrForbidden
		}
		return tx.DeleteDeal(ctx, dealID)
	})
	if err != nil {
		return err
	}

	s.log("deal deleted", binding, slog.String("deal_id", dealID.String()))
	return nil
}

// Get fetches one deal. A deal the caller cannot read is reported as
// not found, identically to one that does not exist.
func (s *Service) Get(ctx context.Context, principalID, dealID uuid.UUID) (Deal, error) {
	binding, err := s.resolver.Resolve(ctx, principalID)
	if err != nil {
		return Deal{}, err
	}
	deal, err := s.repo.GetDeal(ctx, dealID)
	if err != nil {
		return Deal{}, err
	}
	allowed := access.CanRead(binding.Requester(), deal.Target())
	s.record(access.OpRead, allowed)
	if !allowed {
		return Deal{}, shared.ErrNotFound
	}
	return deal, nil
}

// List returns the caller's visible slice of the tenant's deals.
func (s *Service) List(ctx context.Context, principalID uuid.UUID) ([]Deal, error) {
	binding, err := s.resolver.Resolve(ctx, principalID)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.ListDealsByTenant(ctx, binding.TenantID)
	if err != nil {
		return nil, err
	}
	visible := make([]Deal, 0, len(all))
	for _, deal := range all {
		if access.CanRead(binding.Requester(), deal.Target()) {
			visible = append(visible, deal)
		}
	}
	return visible, nil
}

func (s *Service) record(op access.Operation, allowed bool) {
	if s.recorder != nil {
		s.recorder.RecordDecision(op, allowed)
	}
}

func (s *Service) log(msg string, binding identity.Binding, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	args := make([]any, 0, len(attrs)+2)
	args = append(args,
		slog.String("principal_id", binding.PrincipalID.String()),
		slog.String("tenant_id", binding.TenantID.String()))
	for _, a := range attrs {
		args = append(args, a)
	}
	s.logger.Info(msg, args...)
}
