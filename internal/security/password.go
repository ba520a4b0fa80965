package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes; 64 keeps us well inside that.
	MaxPasswordLength = 64
	// Past 16 a single hash takes seconds and login becomes a DoS lever.
	MaxBcryptCost = 16
)

var ErrPasswordPolicy = errors.New("password does not satisfy policy")

// PasswordHasher hashes and verifies passwords with bcrypt. Plaintext never
// leaves this type.
type PasswordHasher struct {
	cost      int
	dummyHash []byte
}

func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > MaxBcryptCost {
		cost = MaxBcryptCost
	}
	h := &PasswordHasher{cost: cost}
	// Used to spend comparable time when the account does not exist.
	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	if err != nil {
		return nil, fmt.Errorf("prepare timing hash: %w", err)
	}
	h.dummyHash = dummy
	return h, nil
}

func (h *PasswordHasher) Cost() int { return h.cost }

func (h *PasswordHasher) Hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Matches reports whether password matches hash. A malformed hash is an
// error, a mismatch is not.
func (h *PasswordHasher) Matches(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// Burn runs one comparison against a fixed hash and discards the result.
func (h *PasswordHasher) Burn(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: length must be between %d and %d", ErrPasswordPolicy, MinPasswordLength, MaxPasswordLength)
	}
	return nil
}
