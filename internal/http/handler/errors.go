package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/elearning-auth-service/internal/http/response"
	"github.com/sandeepkv93/elearning-auth-service/internal/service"
)

type errorMapping struct {
	status int
	code   string
}

var errorsBySentinel = []struct {
	err error
	errorMapping
}{
	{service.ErrInvalidCredentials, errorMapping{http.StatusUnauthorized, "INVALID_CREDENTIALS"}},
	{service.ErrUnauthenticated, errorMapping{http.StatusUnauthorized, "UNAUTHORIZED"}},
	{service.ErrTokenExpiredOrInvalid, errorMapping{http.StatusUnauthorized, "TOKEN_EXPIRED_OR_INVALID"}},
	{service.ErrInvalidOrExpiredToken, errorMapping{http.StatusBadRequest, "RESET_TOKEN_INVALID"}},
	{service.ErrUserNotFound, errorMapping{http.StatusNotFound, "USER_NOT_FOUND"}},
	{service.ErrSessionNotFound, errorMapping{http.StatusNotFound, "SESSION_NOT_FOUND"}},
	{service.ErrEmailAlreadyExists, errorMapping{http.StatusConflict, "EMAIL_ALREADY_EXISTS"}},
	{service.ErrInvalidPassword, errorMapping{http.StatusBadRequest, "INVALID_PASSWORD"}},
	{service.ErrInvalidInput, errorMapping{http.StatusBadRequest, "INVALID_INPUT"}},
	{service.ErrNotificationFailed, errorMapping{http.StatusInternalServerError, "NOTIFICATION_FAILED"}},
}

var kindFallback = map[service.Kind]errorMapping{
	service.KindAuthentication: {http.StatusUnauthorized, "UNAUTHORIZED"},
	service.KindNotFound:       {http.StatusNotFound, "NOT_FOUND"},
	service.KindConflict:       {http.StatusConflict, "CONFLICT"},
	service.KindExpired:        {http.StatusUnauthorized, "EXPIRED"},
	service.KindValidation:     {http.StatusBadRequest, "VALIDATION_FAILED"},
}

// writeServiceError maps a service error onto the envelope. Internal details
// are logged, never sent.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	for _, m := range errorsBySentinel {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
			}
			response.Error(w, r, m.status, m.code, m.err.Error(), nil)
			return
		}
	}
	if m, ok := kindFallback[service.KindOf(err)]; ok {
		response.Error(w, r, m.status, m.code, err.Error(), nil)
		return
	}
	logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
