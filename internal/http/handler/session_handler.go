package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/elearning-auth-service/internal/http/middleware"
	"github.com/sandeepkv93/elearning-auth-service/internal/http/response"
	"github.com/sandeepkv93/elearning-auth-service/internal/service"
)

type SessionAPI interface {
	ListSessions(ctx context.Context, id service.Identity) ([]service.SessionView, error)
	RevokeSession(ctx context.Context, id service.Identity, sessionID uint) error
}

type SessionHandler struct {
	sessions SessionAPI
	logger   *slog.Logger
}

func NewSessionHandler(sessions SessionAPI, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{sessions: sessions, logger: logger}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	views, err := h.sessions.ListSessions(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"sessions": views})
}

func (h *SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	sessionID, err := strconv.ParseUint(chi.URLParam(r, "session_id"), 10, 64)
	if err != nil || sessionID == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid session id", nil)
		return
	}
	if err := h.sessions.RevokeSession(r.Context(), id, uint(sessionID)); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "revoked"})
}
