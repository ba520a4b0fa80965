package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/elearning-auth-service/internal/domain"
	"github.com/sandeepkv93/elearning-auth-service/internal/observability"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByID(ctx context.Context, id uint) (*domain.Session, error)
	FindByToken(ctx context.Context, token string) (*domain.Session, error)
	ListByOwner(ctx context.Context, userID uint) ([]domain.Session, error)
	DeleteByID(ctx context.Context, id uint) (bool, error)
	DeleteAllForOwner(ctx context.Context, userID uint) (int64, error)
	DeactivateAllForOwner(ctx context.Context, userID uint) (int64, error)
	DeactivateOthersForOwner(ctx context.Context, userID, keepSessionID uint) (int64, error)
	PurgeStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type GormSessionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &GormSessionRepository{db: db, now: time.Now}
}

// Create assigns the opaque lookup token and marks the session active.
func (r *GormSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	now := r.now().UTC()
	if s.Token == "" {
		s.Token = uuid.NewString()
	}
	s.Active = true
	s.CreatedAt = now
	s.UpdatedAt = now
	err := r.db.WithContext(ctx).Create(s).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "create", "success")
	return nil
}

func (r *GormSessionRepository) FindByID(ctx context.Context, id uint) (*domain.Session, error) {
	return r.findOne(ctx, "find_by_id", "id = ?", id)
}

func (r *GormSessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	return r.findOne(ctx, "find_by_token", "token = ?", token)
}

func (r *GormSessionRepository) findOne(ctx context.Context, op, query string, arg any) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).Where(query, arg).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "session", op, "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "session", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session", op, "success")
	return &s, nil
}

func (r *GormSessionRepository) ListByOwner(ctx context.Context, userID uint) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "list_by_owner", "error")
		return sessions, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "list_by_owner", "success")
	return sessions, nil
}

// DeleteByID reports whether a row was removed. A missing row is not an error.
func (r *GormSessionRepository) DeleteByID(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&domain.Session{}, id)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_by_id", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_by_id", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormSessionRepository) DeleteAllForOwner(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_all_for_owner", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_all_for_owner", "success")
	return res.RowsAffected, nil
}

// DeactivateAllForOwner keeps the rows for audit; refresh and authentication
// reject inactive sessions.
func (r *GormSessionRepository) DeactivateAllForOwner(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("user_id = ? AND active = ?", userID, true).
		Updates(map[string]any{"active": false, "updated_at": r.now().UTC()})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "deactivate_all_for_owner", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "deactivate_all_for_owner", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionRepository) DeactivateOthersForOwner(ctx context.Context, userID, keepSessionID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("user_id = ? AND id <> ? AND active = ?", userID, keepSessionID, true).
		Updates(map[string]any{"active": false, "updated_at": r.now().UTC()})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "deactivate_others_for_owner", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "deactivate_others_for_owner", "success")
	return res.RowsAffected, nil
}

// PurgeStale removes sessions whose refresh window closed before cutoff and
// inactive sessions last touched before cutoff.
func (r *GormSessionRepository) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR (active = ? AND updated_at < ?)", cutoff, false, cutoff).
		Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "purge_stale", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "purge_stale", "success")
	return res.RowsAffected, nil
}
