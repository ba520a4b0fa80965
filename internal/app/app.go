package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/elearning-auth-service/internal/config"
	"github.com/sandeepkv93/elearning-auth-service/internal/health"
	"github.com/sandeepkv93/elearning-auth-service/internal/observability"
)

// BackgroundTask runs until its context is cancelled.
type BackgroundTask func(ctx context.Context) error

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Readiness     *health.ProbeRunner
	Background    []BackgroundTask

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	closers []func()
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, readiness *health.ProbeRunner, background ...BackgroundTask) *App {
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		Observability:                runtime,
		Readiness:                    readiness,
		Background:                   background,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityTimeout,
	}
}

// OnClose registers fn to run at the end of Run, after the server drained.
// Closers run in reverse registration order.
func (a *App) OnClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Run serves until ctx is cancelled or the server fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	for _, task := range a.Background {
		g.Go(func() error { return task(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	err := g.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	return err
}

func (a *App) shutdown() error {
	a.Logger.Info("shutting down")
	total, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
	defer cancel()

	drainCtx, cancelDrain := context.WithTimeout(total, a.ShutdownHTTPDrainTimeout)
	defer cancelDrain()
	var errs []error
	if err := a.Server.Shutdown(drainCtx); err != nil {
		errs = append(errs, err)
	}

	obsCtx, cancelObs := context.WithTimeout(total, a.ShutdownObservabilityTimeout)
	defer cancelObs()
	if err := a.Observability.Shutdown(obsCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
