package service

import (
	"context"
	"errors"

	"github.com/sandeepkv93/elearning-auth-service/internal/domain"
	"github.com/sandeepkv93/elearning-auth-service/internal/repository"
	"github.com/sandeepkv93/elearning-auth-service/internal/security"
)

type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*domain.User, error)
}

// PasswordCredentialStore answers ErrInvalidCredentials for an unknown email,
// a wrong password and a locked account alike.
type PasswordCredentialStore struct {
	users  repository.UserRepository
	hasher *security.PasswordHasher
}

func NewPasswordCredentialStore(users repository.UserRepository, hasher *security.PasswordHasher) *PasswordCredentialStore {
	return &PasswordCredentialStore{users: users, hasher: hasher}
}

func (c *PasswordCredentialStore) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := c.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.hasher.Burn(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	ok, err := c.hasher.Matches(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok || user.IsLocked() {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
