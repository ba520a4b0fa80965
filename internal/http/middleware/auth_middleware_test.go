package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sandeepkv93/elearning-auth-service/internal/service"
)

type stubAuthenticator struct {
	id  service.Identity
	err error
}

func (s stubAuthenticator) Authenticate(context.Context, string) (service.Identity, error) {
	return s.id, s.err
}

func TestAuthMiddlewareMissingTokenReturnsUnauthorized(t *testing.T) {
	h := AuthMiddleware(stubAuthenticator{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/sessions", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", rr.Code)
	}
}

func TestAuthMiddlewareValidBearerTokenPasses(t *testing.T) {
	want := service.Identity{UserID: 42, Email: "a@example.com", SessionID: 7}
	var got service.Identity
	var raw string
	h := AuthMiddleware(stubAuthenticator{id: want})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		raw = AccessTokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/sessions", nil)
	req.Header.Set("Authorization", "bearer token-value")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for valid token, got %d", rr.Code)
	}
	if got != want || raw != "token-value" {
		t.Fatalf("unexpected context values identity=%+v token=%q", got, raw)
	}
}

func TestAuthMiddlewareMapsFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "ended session", err: service.ErrUnauthenticated, want: http.StatusUnauthorized},
		{name: "store failure", err: errors.New("db down"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := AuthMiddleware(stubAuthenticator{err: tc.err})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				t.Fatal("next handler must not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me/sessions", nil)
			req.Header.Set("Authorization", "Bearer x")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"Bearer":        "",
		"Basic abc":     "",
		"Bearer abc":    "abc",
		"BEARER  abc  ": "abc",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if got := BearerToken(req); got != want {
			t.Fatalf("BearerToken(%q)=%q want %q", header, got, want)
		}
	}
}
