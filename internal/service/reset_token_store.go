package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sandeepkv93/elearning-auth-service/internal/observability"
)

// PasswordResetKeyPrefix namespaces reset entries inside a shared TTL store.
const PasswordResetKeyPrefix = "password:reset:"

// PasswordResetTTL is fixed; the notification text promises it.
const PasswordResetTTL = 15 * time.Minute

// ErrInvalidTTL rejects writes that would store nothing or an entry that
// never expires.
var ErrInvalidTTL = errors.New("reset token ttl must be positive")

// ResetTokenStore is a key-value store whose backend enforces per-key TTL.
// Callers never poll for expiry.
type ResetTokenStore interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	// Take reads and removes key in one atomic step and reports the TTL the
	// entry had left. Of two concurrent callers at most one sees ok.
	Take(ctx context.Context, key string) (value string, remaining time.Duration, ok bool, err error)
	Delete(ctx context.Context, key string) error
}

func checkTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTTL, ttl)
	}
	return nil
}

func resetKey(token string) string {
	return PasswordResetKeyPrefix + token
}

type inMemoryResetEntry struct {
	value     string
	expiresAt time.Time
}

type InMemoryResetTokenStore struct {
	mu    sync.Mutex
	now   func() time.Time
	store map[string]inMemoryResetEntry
}

// NewInMemoryResetTokenStore is meant for development and tests; entries do
// not survive a restart. A nil clock means time.Now.
func NewInMemoryResetTokenStore(now func() time.Time) *InMemoryResetTokenStore {
	if now == nil {
		now = time.Now
	}
	return &InMemoryResetTokenStore{
		now:   now,
		store: make(map[string]inMemoryResetEntry),
	}
}

func (s *InMemoryResetTokenStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		observability.RecordResetTokenStore(ctx, "memory", "put", "error")
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = inMemoryResetEntry{value: value, expiresAt: s.now().Add(ttl)}
	observability.RecordResetTokenStore(ctx, "memory", "put", "success")
	return nil
}

// Get treats an entry as gone once now is past its expiry and drops it.
func (s *InMemoryResetTokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.store[key]
	if !ok {
		observability.RecordResetTokenStore(ctx, "memory", "get", "miss")
		return "", false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.store, key)
		observability.RecordResetTokenStore(ctx, "memory", "get", "expired")
		return "", false, nil
	}
	observability.RecordResetTokenStore(ctx, "memory", "get", "hit")
	return entry.value, true, nil
}

func (s *InMemoryResetTokenStore) Take(ctx context.Context, key string) (string, time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.store[key]
	if !ok {
		observability.RecordResetTokenStore(ctx, "memory", "take", "miss")
		return "", 0, false, nil
	}
	delete(s.store, key)
	now := s.now()
	if now.After(entry.expiresAt) {
		observability.RecordResetTokenStore(ctx, "memory", "take", "expired")
		return "", 0, false, nil
	}
	observability.RecordResetTokenStore(ctx, "memory", "take", "hit")
	return entry.value, entry.expiresAt.Sub(now), true, nil
}

func (s *InMemoryResetTokenStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, key)
	observability.RecordResetTokenStore(ctx, "memory", "delete", "success")
	return nil
}

func (s *InMemoryResetTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.store)
}
