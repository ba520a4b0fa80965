package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/elearning-auth-service/internal/health"
	"github.com/sandeepkv93/elearning-auth-service/internal/http/handler"
	"github.com/sandeepkv93/elearning-auth-service/internal/http/middleware"
	"github.com/sandeepkv93/elearning-auth-service/internal/http/response"
)

type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	SessionHandler *handler.SessionHandler
	Authenticator  middleware.Authenticator
	Readiness      *health.ProbeRunner
	Logger         *slog.Logger
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger(dep.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	requireAuth := middleware.AuthMiddleware(dep.Authenticator)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", dep.AuthHandler.Signup)
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/refresh", dep.AuthHandler.Refresh)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.Post("/forgot-password", dep.AuthHandler.ForgotPassword)
			r.Post("/reset-password", dep.AuthHandler.ResetPassword)
			r.With(requireAuth).Post("/change-password", dep.AuthHandler.ChangePassword)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me/sessions", dep.SessionHandler.List)
			r.Delete("/me/sessions/{session_id}", dep.SessionHandler.Revoke)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
