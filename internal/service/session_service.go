package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sandeepkv93/elearning-auth-service/internal/observability"
	"github.com/sandeepkv93/elearning-auth-service/internal/repository"
)

type SessionView struct {
	ID        uint      `json:"id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsCurrent bool      `json:"is_current"`
}

// SessionService exposes a user's own sessions. It never touches sessions of
// another user; a foreign id looks exactly like a missing one.
type SessionService struct {
	sessions repository.SessionRepository
	logger   *slog.Logger
}

func NewSessionService(sessions repository.SessionRepository, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{sessions: sessions, logger: logger}
}

func (s *SessionService) ListSessions(ctx context.Context, id Identity) ([]SessionView, error) {
	sessions, err := s.sessions.ListByOwner(ctx, id.UserID)
	if err != nil {
		return nil, internalError("list sessions", err)
	}
	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, SessionView{
			ID:        session.ID,
			Active:    session.Active,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
			IsCurrent: session.ID == id.SessionID,
		})
	}
	return views, nil
}

// RevokeSession deletes one session owned by the caller. Revoking the
// calling session is allowed and behaves like logout.
func (s *SessionService) RevokeSession(ctx context.Context, id Identity, sessionID uint) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return internalError("find session", err)
	}
	if session.UserID != id.UserID {
		return ErrSessionNotFound
	}
	if _, err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return internalError("delete session", err)
	}
	observability.Audit(ctx, s.logger, "auth.session_revoked", "user_id", id.UserID, "session_id", sessionID)
	return nil
}
