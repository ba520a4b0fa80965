package di

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/elearning-auth-service/internal/app"
	"github.com/sandeepkv93/elearning-auth-service/internal/config"
	"github.com/sandeepkv93/elearning-auth-service/internal/database"
	"github.com/sandeepkv93/elearning-auth-service/internal/health"
	"github.com/sandeepkv93/elearning-auth-service/internal/http/handler"
	"github.com/sandeepkv93/elearning-auth-service/internal/http/router"
	"github.com/sandeepkv93/elearning-auth-service/internal/notify"
	"github.com/sandeepkv93/elearning-auth-service/internal/observability"
	"github.com/sandeepkv93/elearning-auth-service/internal/repository"
	"github.com/sandeepkv93/elearning-auth-service/internal/security"
	"github.com/sandeepkv93/elearning-auth-service/internal/service"
)

func provideDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, func(), error) {
	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			logger.Warn("close database", "error", err)
		}
	}
	if err := database.Migrate(db); err != nil {
		cleanup()
		return nil, nil, err
	}
	return db, cleanup, nil
}

// provideRedis returns nil when REDIS_ADDR is unset; config only allows that
// outside production.
func provideRedis(cfg *config.Config, logger *slog.Logger) (redis.UniversalClient, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
}

func provideResetTokenStore(client redis.UniversalClient, logger *slog.Logger) service.ResetTokenStore {
	if client == nil {
		logger.Warn("REDIS_ADDR not set; password reset tokens are kept in memory")
		return service.NewInMemoryResetTokenStore(nil)
	}
	return service.NewRedisResetTokenStore(client)
}

func provideNotifier(cfg *config.Config, logger *slog.Logger) service.PasswordResetNotifier {
	if cfg.Notifier == "smtp" {
		return notify.NewSMTPMailer(notify.SMTPConfig{
			Host:         cfg.SMTPHost,
			Port:         cfg.SMTPPort,
			Username:     cfg.SMTPUsername,
			Password:     cfg.SMTPPassword,
			From:         cfg.SMTPFrom,
			ResetURLBase: cfg.ResetURLBase,
			LinkValidity: service.PasswordResetTTL,
		})
	}
	return notify.NewLogNotifier(logger, os.Stderr, cfg.ResetURLBase)
}

func provideStore(db *gorm.DB) repository.Store {
	return repository.NewStore(db)
}

func provideSessionRepository(store repository.Store) repository.SessionRepository {
	return store.Sessions()
}

func provideHasher(cfg *config.Config) (*security.PasswordHasher, error) {
	return security.NewPasswordHasher(cfg.BcryptCost)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)
}

func provideCredentialVerifier(store repository.Store, hasher *security.PasswordHasher) service.CredentialVerifier {
	return service.NewPasswordCredentialStore(store.Users(), hasher)
}

func provideAuthSettings(cfg *config.Config) service.AuthSettings {
	return service.AuthSettings{AccessTTL: cfg.JWTAccessTTL, RefreshTTL: cfg.JWTRefreshTTL}
}

func provideSessionJanitor(cfg *config.Config, sessions repository.SessionRepository, logger *slog.Logger) *service.SessionJanitor {
	return service.NewSessionJanitor(sessions, cfg.SessionPurgeInterval, cfg.SessionRetention, logger)
}

func provideReadiness(db *gorm.DB, client redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if client != nil {
		checkers = append(checkers, health.NewRedisChecker(client))
	}
	return health.NewProbeRunner(2*time.Second, time.Second, checkers...)
}

func provideRouter(cfg *config.Config, auth *service.AuthService, authHandler *handler.AuthHandler, sessionHandler *handler.SessionHandler, readiness *health.ProbeRunner, logger *slog.Logger) http.Handler {
	return router.NewRouter(router.Dependencies{
		AuthHandler:    authHandler,
		SessionHandler: sessionHandler,
		Authenticator:  auth,
		Readiness:      readiness,
		Logger:         logger,
		EnableOTelHTTP: cfg.OTELTracingEnabled || cfg.OTELMetricsEnabled,
	})
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func provideApp(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, readiness *health.ProbeRunner, janitor *service.SessionJanitor) *app.App {
	return app.New(cfg, logger, server, runtime, readiness, janitor.Run)
}
