package tenants

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// ProvisionParams describes a tenant to create together with its first
// (owner) principal.
type ProvisionParams struct {
	Name          string
	OwnerEmail    string
	OwnerName     string
	OwnerPassword string
}

// ProvisionResult reports the ids minted during provisioning.
type ProvisionResult struct {
	Tenant      Tenant
	OwnerRoleID uuid.UUID
	ProfileID   uuid.UUID
}

// Service provisions and removes tenants. Both operations demand an
// Operator credential; there is no path into them from a tenant-scoped
// binding.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Provision creates a tenant, its root Owner role seeded with the OWNER
// definition's default permissions, and the owner profile with its
// permission cache already built, all in one transaction.
func (s *Service) Provision(ctx context.Context, op Operator, params ProvisionParams) (ProvisionResult, error) {
	name := strings.TrimSpace(params.Name)
	email := strings.TrimSpace(strings.ToLower(params.OwnerEmail))
	ownerName := strings.TrimSpace(params.OwnerName)
	if name == "" || email == "" || ownerName == "" {
		return ProvisionResult{}, fmt.Errorf("%w: tenant name, owner email and owner name required", shared.ErrInvalidInput)
	}
	if len(params.OwnerPassword) < 8 {
		return ProvisionResult{}, fmt.Errorf("%w: owner password must be at least 8 characters", shared.ErrInvalidInput)
	}

	definitionID, err := s.repo.GetDefinitionID(ctx, hierarchy.DefinitionOwner)
	if err != nil {
		return ProvisionResult{}, fmt.Errorf("tenants: owner definition: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.OwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return ProvisionResult{}, fmt.Errorf("tenants: hash owner password: %w", err)
	}

	tenantID := uuid.New()
	roleID := uuid.New()
	profileID := uuid.New()

	rec := ProvisionRecord{
		Tenant: Tenant{
			ID:   tenantID,
			Name: name,
			Slug: Slugify(name),
		},
		OwnerRoleID:       roleID,
		OwnerRoleName:     "Owner",
		OwnerDefinitionID: definitionID,
		OwnerRolePath:     hierarchy.RootPath(roleID),
		ProfileID:         profileID,
		Email:             email,
		ProfileName:       ownerName,
		PasswordHash:      string(hash),
	}
	if err := s.repo.Provision(ctx, rec); err != nil {
		return ProvisionResult{}, err
	}

	s.log("tenant provisioned", op,
		slog.String("tenant_id", tenantID.String()),
		slog.String("slug", rec.Tenant.Slug))

	return ProvisionResult{
		Tenant:      rec.Tenant,
		OwnerRoleID: roleID,
		ProfileID:   profileID,
	}, nil
}

// Remove deletes a tenant and, through storage cascades, every role,
// profile and deal inside it.
func (s *Service) Remove(ctx context.Context, op Operator, tenantID uuid.UUID) error {
	if _, err := s.repo.GetTenant(ctx, tenantID); err != nil {
		return err
	}
	if err := s.repo.Remove(ctx, tenantID); err != nil {
		return err
	}
	s.log("tenant removed", op, slog.String("tenant_id", tenantID.String()))
	return nil
}

// GetTenant fetches one tenant.
func (s *Service) GetTenant(ctx context.Context, _ Operator, id uuid.UUID) (Tenant, error) {
	return s.repo.GetTenant(ctx, id)
}

// ListTenants lists every tenant on the platform.
func (s *Service) ListTenants(ctx context.Context, _ Operator) ([]Tenant, error) {
	return s.repo.ListTenants(ctx)
}

// Slugify folds a display name into a unique-index friendly slug: case
// folded, runs of non-alphanumerics collapsed to single hyphens.
func Slugify(name string) string {
	folded := cases.Fold().String(name)
	var b strings.Builder
	b.Grow(len(folded))
	lastHyphen := true
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (s *Service) log(msg string, op Operator, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("operator", op.Subject()))
	for _, a := range attrs {
		args = append(args, a)
	}
	s.logger.Info(msg, args...)
}
