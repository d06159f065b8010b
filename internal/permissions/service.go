package permissions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Service orchestrates the permission registry and role-permission
// assignment, including the cache invalidation protocol: every edge
// mutation recomputes the caches of the directly affected role's
// profiles before the transaction commits.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreatePermission registers a new capability token. A duplicate slug
// fails with ErrDuplicatePermission.
func (s *Service) CreatePermission(ctx context.Context, slug, description string) (Permission, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return Permission{}, fmt.Errorf("%w: permission slug required", shared.ErrInvalidInput)
	}
	perm := Permission{
		ID:          uuid.New(),
		Slug:        slug,
		Description: strings.TrimSpace(description),
	}
	if err := s.repo.CreatePermission(ctx, perm); err != nil {
		return Permission{}, err
	}
	return perm, nil
}

// EnsurePermission upserts a permission, used by catalog seeding.
func (s *Service) EnsurePermission(ctx context.Context, slug, description string) (Permission, error) {
	return s.repo.UpsertPermission(ctx, Permission{
		ID:          uuid.New(),
		Slug:        strings.TrimSpace(strings.ToLower(slug)),
		Description: strings.TrimSpace(description),
	})
}

// SeedCatalog upserts every known permission slug.
func (s *Service) SeedCatalog(ctx context.Context) error {
	for slug, description := range Catalog() {
		if _, err := s.EnsurePermission(ctx, slug, description); err != nil {
			return fmt.Errorf("permissions: seed %s: %w", slug, err)
		}
	}
	return nil
}

// ListPermissions returns all permissions ordered by slug.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// Grant attaches a permission to a role and recomputes the caches of the
// role's profiles in the same transaction.
func (s *Service) Grant(ctx context.Context, roleID, permissionID uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepositoryPort) error {
		if err := tx.AttachPermission(ctx, roleID, permissionID); err != nil {
			return err
		}
		return refreshCaches(ctx, tx, roleID)
	})
	if err != nil {
		return err
	}
	s.logMutation("permission granted", roleID, permissionID)
	return nil
}

// Revoke detaches a permission from a role under the same contract as
// Grant: by the time it returns, no affected principal's cache still
// contains the revoked slug.
func (s *Service) Revoke(ctx context.Context, roleID, permissionID uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepositoryPort) error {
		if err := tx.DetachPermission(ctx, roleID, permissionID); err != nil {
			return err
		}
		return refreshCaches(ctx, tx, roleID)
	})
	if err != nil {
		return err
	}
	s.logMutation("permission revoked", roleID, permissionID)
	return nil
}

// SetRolePermissions replaces a role's permissions with the given set,
// attaching and detaching only the difference, then refreshes caches once.
func (s *Service) SetRolePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	existing, err := s.repo.ListRolePermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}
	current := make(map[uuid.UUID]struct{}, len(existing))
	for _, id := range existing {
		current[id] = struct{}{}
	}
	keep := make(map[uuid.UUID]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
	}

	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepositoryPort) error {
		for id := range keep {
			if _, ok := current[id]; !ok {
				if err := tx.AttachPermission(ctx, roleID, id); err != nil {
					return err
				}
			}
		}
		for id := range current {
			if _, ok := keep[id]; !ok {
				if err := tx.DetachPermission(ctx, roleID, id); err != nil {
					return err
				}
			}
		}
		return refreshCaches(ctx, tx, roleID)
	})
}

// GetPermissionBySlug fetches a permission by its slug.
func (s *Service) GetPermissionBySlug(ctx context.Context, slug string) (Permission, error) {
	return s.repo.GetPermissionBySlug(ctx, slug)
}

func refreshCaches(ctx context.Context, tx TxRepositoryPort, roleID uuid.UUID) error {
	slugs, err := tx.RoleSlugs(ctx, roleID)
	if err != nil {
		return err
	}
	return tx.RefreshProfileCaches(ctx, roleID, slugs)
}

func (s *Service) logMutation(msg string, roleID, permissionID uuid.UUID) {
	if s.logger == nil {
		return
	}
	s.logger.Info(msg,
		slog.String("role_id", roleID.String()),
		slog.String("permission_id", permissionID.String()))
}
