package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmailTaken is returned when registering an already-registered email.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials is returned for unknown email and wrong password
// alike, so the two cases are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Credential is the slice of a stored account the auth flows need.
type Credential struct {
	UserID       string
	Email        string
	Role         string
	FullName     *string
	PasswordHash string
	CreatedAt    time.Time
}

// CredentialStore persists account credentials. Implemented by the user
// package; new accounts are created with the default user role.
type CredentialStore interface {
	CreateAccount(ctx context.Context, email, passwordHash string, fullName *string) (Credential, error)
	CredentialByEmail(ctx context.Context, email string) (Credential, error)
}

// Service contains the business logic for registration, login, and token
// refresh.
type Service struct {
	creds  CredentialStore
	tokens *TokenManager
}

// NewService creates a new auth Service.
func NewService(creds CredentialStore, tokens *TokenManager) *Service {
	return &Service{creds: creds, tokens: tokens}
}

// Register creates a new account and issues its first token pair.
func (s *Service) Register(ctx context.Context, email, password string, fullName *string) (Credential, TokenPair, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Credential{}, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	cred, err := s.creds.CreateAccount(ctx, email, string(hash), fullName)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Credential{}, TokenPair{}, ErrEmailTaken
		}
		return Credential{}, TokenPair{}, fmt.Errorf("create account: %w", err)
	}

	pair, err := s.tokens.Issue(Principal{UserID: cred.UserID, Email: cred.Email, Role: cred.Role})
	if err != nil {
		return Credential{}, TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return cred, pair, nil
}

// Login verifies the password against the stored hash and issues a pair.
func (s *Service) Login(ctx context.Context, email, password string) (Credential, TokenPair, error) {
	cred, err := s.creds.CredentialByEmail(ctx, email)
	if err != nil {
		return Credential{}, TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return Credential{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(Principal{UserID: cred.UserID, Email: cred.Email, Role: cred.Role})
	if err != nil {
		return Credential{}, TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return cred, pair, nil
}

// Refresh rotates a refresh token into a new pair.
func (s *Service) Refresh(rawRefresh string) (TokenPair, error) {
	return s.tokens.Refresh(rawRefresh)
}
