package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Service orchestrates role tree mutations. Every path a role carries is
// computed here and persisted atomically with the structural change.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateRole inserts a new role under parentRoleID. The parent must belong
// to tenantID. The new role's path is parent.path + "." + segment(newID),
// stored atomically with the insertion; default permissions from the
// definition are seeded in the same transaction.
func (s *Service) CreateRole(ctx context.Context, tenantID, parentRoleID uuid.UUID, name, definitionKey string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalidInput)
	}

	parent, err := s.repo.GetRole(ctx, parentRoleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Role{}, shared.ErrInvalidParent
		}
		return Role{}, err
	}
	if parent.TenantID != tenantID {
		return Role{}, shared.ErrInvalidParent
	}

	def, err := s.repo.GetDefinition(ctx, definitionKey)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Role{}, fmt.Errorf("%w: unknown role definition %q", shared.ErrInvalidInput, definitionKey)
		}
		return Role{}, err
	}

	id := uuid.New()
	parentID := parent.ID
	role := Role{
		ID:           id,
		TenantID:     tenantID,
		DefinitionID: def.ID,
		Name:         name,
		ParentRoleID: &parentID,
		Path:         parent.Path.Child(id),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepositoryPort) error {
		if err := tx.InsertRole(ctx, role); err != nil {
			return err
		}
		if len(def.DefaultPermissions) > 0 {
			return tx.SeedRolePermissions(ctx, role.ID, def.DefaultPermissions)
		}
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// DeleteRole removes a leaf role that no profile references. The root
// Owner role is thereby protected whenever a principal is bound to it.
func (s *Service) DeleteRole(ctx context.Context, roleID uuid.UUID) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}

	bound, err := s.repo.CountProfiles(ctx, roleID)
	if err != nil {
		return err
	}
	if bound > 0 {
		return shared.ErrRoleInUse
	}

	children, err := s.repo.CountChildren(ctx, roleID)
	if err != nil {
		return err
	}
	if children > 0 {
		return shared.ErrRoleHasDependents
	}

	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepositoryPort) error {
		rows, err := tx.DeleteRole(ctx, roleID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// MoveRole re-parents a role within its tenant, recomputing the paths of
// the moved subtree atomically. Cross-tenant moves are rejected
// unconditionally; the root role cannot be moved.
func (s *Service) MoveRole(ctx context.Context, roleID, newParentID uuid.UUID) (Role, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return Role{}, err
	}
	if role.IsRoot() {
		return Role{}, fmt.Errorf("%w: root role cannot be moved", shared.ErrInvalidParent)
	}

	parent, err := s.repo.GetRole(ctx, newParentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Role{}, shared.ErrInvalidParent
		}
		return Role{}, err
	}
	if parent.TenantID != role.TenantID {
		return Role{}, shared.ErrCrossTenantForbidden
	}
	if role.Path.IsAncestorOrEqual(parent.Path) {
		// The new parent lies inside the moved subtree.
		return Role{}, shared.ErrInvalidParent
	}

	oldPath := role.Path
	newPath := parent.Path.Child(role.ID)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepositoryPort) error {
		if err := tx.UpdateParent(ctx, role.ID, parent.ID); err != nil {
			return err
		}
		return tx.RebasePaths(ctx, role.TenantID, oldPath, newPath)
	})
	if err != nil {
		return Role{}, err
	}

	parentID := parent.ID
	role.ParentRoleID = &parentID
	role.Path = newPath
	return role, nil
}

// GetRole fetches a role by id.
func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// ListRoles returns all roles of a tenant ordered by path.
func (s *Service) ListRoles(ctx context.Context, tenantID uuid.UUID) ([]Role, error) {
	return s.repo.ListRoles(ctx, tenantID)
}
