package user

import (
	"context"
	"errors"
	"fmt"
)

// Service contains business logic for user management.
type Service struct {
	repo *Repository
}

// NewService creates a new user Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new user account with the given role.
func (s *Service) Create(ctx context.Context, email, passwordHash, role string, fullName *string) (*User, error) {
	u, err := s.repo.Create(ctx, email, passwordHash, role, fullName)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetByID returns a user by their UUID.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail returns a user by their email address.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// UpdateProfile updates profile fields for the user.
func (s *Service) UpdateProfile(ctx context.Context, id string, fullName *string) (*User, error) {
	return s.repo.UpdateProfile(ctx, id, fullName)
}

// UpdatePassword replaces the user's password hash.
func (s *Service) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, id, passwordHash)
}

// ListAll returns all registered users.
func (s *Service) ListAll(ctx context.Context) ([]*User, error) {
	return s.repo.ListAll(ctx)
}

// IsNotFound returns true when the error indicates a user was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
