package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sandeepkv93/elearning-auth-service/internal/http/response"
	"github.com/sandeepkv93/elearning-auth-service/internal/observability"
	"github.com/sandeepkv93/elearning-auth-service/internal/service"
)

type contextKey string

const (
	IdentityContextKey    contextKey = "identity"
	AccessTokenContextKey contextKey = "access_token"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (service.Identity, error)
}

// AuthMiddleware resolves the bearer token into an Identity. Handlers read it
// with IdentityFromContext; nothing downstream looks at the token again.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing", "none")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
				return
			}
			id, err := auth.Authenticate(r.Context(), raw)
			if err != nil {
				if !errors.Is(err, service.ErrUnauthenticated) {
					observability.RecordAccessTokenValidation(r.Context(), "error", "bearer")
					response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not validate access token", nil)
					return
				}
				observability.RecordAccessTokenValidation(r.Context(), "invalid", "bearer")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid", "bearer")
			ctx := context.WithValue(r.Context(), IdentityContextKey, id)
			ctx = context.WithValue(ctx, AccessTokenContextKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header or "".
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func IdentityFromContext(ctx context.Context) (service.Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(service.Identity)
	return id, ok
}

func AccessTokenFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(AccessTokenContextKey).(string)
	return raw
}
