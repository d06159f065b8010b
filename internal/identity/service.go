package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/access"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Service is the tenant binding resolver and the owner of the
// per-principal permission cache.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Resolve derives the caller's binding from its stored profile. A missing
// or inactive profile resolves to ErrNotFound: such a principal has zero
// access everywhere.
func (s *Service) Resolve(ctx context.Context, principalID uuid.UUID) (Binding, error) {
	profile, err := s.repo.GetProfile(ctx, principalID)
	if err != nil {
		return Binding{}, err
	}
	if !profile.IsActive {
		return Binding{}, shared.ErrNotFound
	}

	path, err := s.repo.GetRolePath(ctx, profile.RoleID)
	if err != nil {
		return Binding{}, fmt.Errorf("identity: role path for %s: %w", profile.RoleID, err)
	}

	return Binding{
		PrincipalID: profile.ID,
		TenantID:    profile.TenantID,
		RoleID:      profile.RoleID,
		RolePath:    path,
		Permissions: access.NewPermissionSet(profile.CachedPermissions),
	}, nil
}

// CreateProfile inserts a tenant member. The permission cache is built
// from the role's live assignment set at insert time, so a fresh profile
// is immediately consistent.
func (s *Service) CreateProfile(ctx context.Context, tenantID, roleID uuid.UUID, email, name, passwordHash string) (Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Profile{}, fmt.Errorf("%w: email required", shared.ErrInvalidInput)
	}

	slugs, err := s.repo.ListRoleSlugs(ctx, roleID)
	if err != nil {
		return Profile{}, err
	}

	profile := Profile{
		ID:                uuid.New(),
		TenantID:          tenantID,
		RoleID:            roleID,
		Email:             email,
		Name:              strings.TrimSpace(name),
		PasswordHash:      passwordHash,
		IsActive:          true,
		CachedPermissions: slugs,
	}
	if err := s.repo.InsertProfile(ctx, profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// RecomputeCacheForRole rebuilds cached_permissions for every profile
// bound to roleID from the live role-permission set. Only directly bound
// profiles are touched — never ancestors or descendants. The operation is
// idempotent.
func (s *Service) RecomputeCacheForRole(ctx context.Context, roleID uuid.UUID) error {
	slugs, err := s.repo.ListRoleSlugs(ctx, roleID)
	if err != nil {
		return err
	}
	updated, err := s.repo.UpdateCachedPermissions(ctx, roleID, slugs)
	if err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Debug("permission cache recomputed",
			slog.String("role_id", roleID.String()),
			slog.Int64("profiles", updated))
	}
	return nil
}

// ReconcileAll recomputes every role's profile caches. This is a drift
// repair for operators; the transactional invalidation in the permissions
// service is the actual propagation path.
func (s *Service) ReconcileAll(ctx context.Context) error {
	roleIDs, err := s.repo.ListRoleIDs(ctx)
	if err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		if err := s.RecomputeCacheForRole(ctx, roleID); err != nil {
			return fmt.Errorf("identity: reconcile role %s: %w", roleID, err)
		}
	}
	return nil
}
