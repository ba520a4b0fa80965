package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repos groups the repositories that take part in one logical operation.
type Repos interface {
	Users() UserRepository
	Sessions() SessionRepository
}

// Store hands out repositories and runs functions in a database transaction.
// Repositories passed to fn share the transaction; fn's error rolls it back.
type Store interface {
	Repos
	WithinTx(ctx context.Context, fn func(tx Repos) error) error
}

type StoreOption func(*GormStore)

func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *GormStore) {
		if now != nil {
			s.now = now
		}
	}
}

type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB, opts ...StoreOption) Store {
	s := &GormStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GormStore) Users() UserRepository {
	return &GormUserRepository{db: s.db, now: s.now}
}

func (s *GormStore) Sessions() SessionRepository {
	return &GormSessionRepository{db: s.db, now: s.now}
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, now: s.now})
	})
}
