package user

import (
	"context"
	"errors"

	"github.com/mediavault/service/internal/auth"
)

// CreateAccount implements auth.CredentialStore. New accounts always get
// the default user role; admin accounts are provisioned out of band.
func (s *Service) CreateAccount(ctx context.Context, email, passwordHash string, fullName *string) (auth.Credential, error) {
	u, err := s.repo.Create(ctx, email, passwordHash, RoleUser, fullName)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return auth.Credential{}, auth.ErrEmailTaken
		}
		return auth.Credential{}, err
	}
	return credentialOf(u), nil
}

// CredentialByEmail implements auth.CredentialStore.
func (s *Service) CredentialByEmail(ctx context.Context, email string) (auth.Credential, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return auth.Credential{}, err
	}
	return credentialOf(u), nil
}

func credentialOf(u *User) auth.Credential {
	return auth.Credential{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		FullName:     u.FullName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}
