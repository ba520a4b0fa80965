//go:build wireinject
// +build wireinject

package di

import (
	"context"
	"log/slog"

	"github.com/google/wire"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/sandeepkv93/elearning-auth-service/internal/app"
	"github.com/sandeepkv93/elearning-auth-service/internal/config"
	"github.com/sandeepkv93/elearning-auth-service/internal/http/handler"
	"github.com/sandeepkv93/elearning-auth-service/internal/observability"
	"github.com/sandeepkv93/elearning-auth-service/internal/service"
)

var storageSet = wire.NewSet(
	provideDB,
	provideRedis,
	provideStore,
	provideSessionRepository,
	provideResetTokenStore,
)

var serviceSet = wire.NewSet(
	provideHasher,
	provideJWTManager,
	provideCredentialVerifier,
	provideNotifier,
	provideAuthSettings,
	service.NewAuthService,
	service.NewSessionService,
	provideSessionJanitor,
)

var httpSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewSessionHandler,
	wire.Bind(new(handler.AuthAPI), new(*service.AuthService)),
	wire.Bind(new(handler.SessionAPI), new(*service.SessionService)),
	provideReadiness,
	provideRouter,
	provideHTTPServer,
)

func InitializeApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*app.App, func(), error) {
	wire.Build(
		storageSet,
		serviceSet,
		httpSet,
		observability.InitRuntime,
		provideApp,
	)
	return nil, nil, nil
}
