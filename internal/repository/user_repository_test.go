package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandeepkv93/elearning-auth-service/internal/domain"
)

func TestUserRepositoryCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	ctx := context.Background()

	u := &domain.User{Email: "  Mixed@Example.COM ", FullName: "M", PasswordHash: "h"}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "mixed@example.com" || u.Status != domain.UserStatusActive {
		t.Fatalf("unexpected stored user %+v", u)
	}

	found, err := repo.FindByEmail(ctx, "MIXED@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if found.ID != u.ID {
		t.Fatalf("expected user %d, got %d", u.ID, found.ID)
	}

	dup := &domain.User{Email: "mixed@example.com", FullName: "D", PasswordHash: "h"}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserRepositoryUpdates(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	ctx := context.Background()
	u := &domain.User{Email: "u@example.com", FullName: "U", PasswordHash: "old"}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.UpdatePasswordHash(ctx, u.ID, "new"); err != nil {
		t.Fatalf("update hash: %v", err)
	}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.TouchLastLogin(ctx, u.ID, at); err != nil {
		t.Fatalf("touch last login: %v", err)
	}
	got, err := repo.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.PasswordHash != "new" {
		t.Fatalf("expected updated hash, got %q", got.PasswordHash)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(at) {
		t.Fatalf("unexpected last login %v", got.LastLoginAt)
	}

	if err := repo.UpdatePasswordHash(ctx, 9999, "x"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for missing user, got %v", err)
	}
	if _, err := repo.FindByID(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
