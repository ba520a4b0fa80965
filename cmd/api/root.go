package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/elearning-auth-service/internal/config"
	"github.com/sandeepkv93/elearning-auth-service/internal/database"
	"github.com/sandeepkv93/elearning-auth-service/internal/di"
	"github.com/sandeepkv93/elearning-auth-service/internal/observability"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "elearning-auth",
		Short:         "Authentication and session API for the e-learning platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd(), newMigrateCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger, lp, err := observability.NewLogger(ctx, cfg, os.Stdout)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a, cleanup, err := di.InitializeApp(ctx, cfg, logger, lp)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer cleanup()
			return a.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, lp, err := observability.NewLogger(cmd.Context(), cfg, os.Stdout)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if lp != nil {
				defer func() { _ = lp.Shutdown(context.Background()) }()
			}
			db, err := database.Open(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()
			if err := database.Migrate(db.WithContext(cmd.Context())); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}
