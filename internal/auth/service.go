package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/lattice-crm/lattice-crm/internal/identity"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// ProfileStore is the slice of identity persistence authentication
// needs.
type ProfileStore interface {
	GetProfileByEmail(ctx context.Context, email string) (identity.Profile, error)
}

// Service wraps authentication business rules. It establishes WHO the
// caller is; what they may do is always resolved afterwards from their
// stored binding.
type Service struct {
	profiles ProfileStore
}

// NewService constructs a new Service.
func NewService(profiles ProfileStore) *Service {
	return &Service{profiles: profiles}
}

// Authenticate validates email/password credentials. Unknown email,
// inactive profile and wrong password are indistinguishable to the
// caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (identity.Profile, error) {
	profile, err := s.profiles.GetProfileByEmail(ctx, email)
	if err != nil {
		return identity.Profile{}, shared.ErrInvalidCredentials
	}
	if !profile.IsActive {
		return identity.Profile{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return identity.Profile{}, shared.ErrInvalidCredentials
	}
	return profile, nil
}
