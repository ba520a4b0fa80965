package authctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/elearning-auth-service/internal/config"
	"github.com/sandeepkv93/elearning-auth-service/internal/database"
	"github.com/sandeepkv93/elearning-auth-service/internal/domain"
	"github.com/sandeepkv93/elearning-auth-service/internal/repository"
	"github.com/sandeepkv93/elearning-auth-service/internal/service"
	"github.com/sandeepkv93/elearning-auth-service/internal/tools/common"
	"github.com/sandeepkv93/elearning-auth-service/internal/tools/loadgen"
	"github.com/sandeepkv93/elearning-auth-service/internal/tools/ui"
)

// OpenDB returns a ready database handle and a func that releases it.
type OpenDB func() (*gorm.DB, func(), error)

type options struct {
	ci      bool
	timeout time.Duration
	openDB  OpenDB
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(openFromConfig)
}

func newRootCommand(openDB OpenDB) *cobra.Command {
	opts := &options{openDB: openDB}
	cmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Operate the auth service database and smoke-test a running API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall command timeout")
	cmd.AddCommand(newMigrateCommand(opts), newSessionsCommand(opts), newLoadgenCommand(opts))
	return cmd
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users and sessions tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts, "authctl migrate", func(ctx context.Context) ([]string, error) {
				db, release, err := opts.openDB()
				if err != nil {
					return nil, err
				}
				defer release()
				if err := database.Migrate(db.WithContext(ctx)); err != nil {
					return nil, err
				}
				return []string{"schema up to date"}, nil
			})
		},
	}
}

func newSessionsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Inspect and clean up login sessions"}
	cmd.AddCommand(newSessionsListCommand(opts), newSessionsPurgeCommand(opts))
	return cmd
}

func newSessionsListCommand(opts *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the sessions of one account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts, "authctl sessions list", func(ctx context.Context) ([]string, error) {
				db, release, err := opts.openDB()
				if err != nil {
					return nil, err
				}
				defer release()
				return listSessions(ctx, repository.NewStore(db), email)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func listSessions(ctx context.Context, store repository.Store, email string) ([]string, error) {
	user, err := store.Users().FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("no account for %q", email)
		}
		return nil, err
	}
	sessions, err := store.Sessions().ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(s.ID), 10),
			strconv.FormatBool(s.Active),
			s.CreatedAt.UTC().Format(time.RFC3339),
			s.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
	details := []string{fmt.Sprintf("user_id=%d sessions=%d", user.ID, len(sessions))}
	if len(rows) > 0 {
		details = append(details, ui.Table([]string{"ID", "ACTIVE", "CREATED", "EXPIRES"}, rows))
	}
	return details, nil
}

func newSessionsPurgeCommand(opts *options) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired and revoked sessions older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}
			return execute(cmd, opts, "authctl sessions purge", func(ctx context.Context) ([]string, error) {
				db, release, err := opts.openDB()
				if err != nil {
					return nil, err
				}
				defer release()
				janitor := service.NewSessionJanitor(repository.NewSessionRepository(db), 0, olderThan, slog.New(slog.NewTextHandler(io.Discard, nil)))
				n, err := janitor.PurgeOnce(ctx)
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("purged=%d", n)}, nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "retention window")
	return cmd
}

func newLoadgenCommand(opts *options) *cobra.Command {
	cfg := loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Drive auth traffic against a running API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts, "authctl loadgen", func(ctx context.Context) ([]string, error) {
				res, err := loadgen.Run(ctx, cfg)
				if err != nil {
					return nil, err
				}
				details := []string{fmt.Sprintf("total=%d failures=%d", res.TotalRequests, res.Failures)}
				for _, class := range []string{"2xx", "3xx", "4xx", "5xx", "other", "error"} {
					if n := res.ByStatusClass[class]; n > 0 {
						details = append(details, fmt.Sprintf("%s=%d", class, n))
					}
				}
				if res.Failures > 0 {
					return details, fmt.Errorf("%d requests failed", res.Failures)
				}
				return details, nil
			})
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&cfg.Profile, "profile", "mixed", "traffic profile: auth, reset or mixed")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 10*time.Second, "how long to generate traffic")
	cmd.Flags().IntVar(&cfg.RPS, "rps", 10, "requests per second across all workers")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 4, "number of virtual users")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 42, "seed for the mixed profile")
	return cmd
}

// execute runs fn behind the spinner, or plainly with a JSON result line in
// --ci mode. The returned error makes the process exit non-zero.
func execute(cmd *cobra.Command, opts *options, title string, fn ui.Task) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	if opts.ci {
		details, err := fn(ctx)
		common.WriteCIResult(cmd.OutOrStdout(), err == nil, title, details, err)
		return err
	}
	_, err := ui.Run(ctx, title, fn)
	return err
}

func openFromConfig() (*gorm.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = database.Close(db) }, nil
}
