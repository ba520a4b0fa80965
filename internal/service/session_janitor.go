package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sandeepkv93/elearning-auth-service/internal/repository"
)

// SessionJanitor periodically removes sessions whose refresh window closed,
// and deactivated sessions, once they are older than the retention period.
type SessionJanitor struct {
	sessions  repository.SessionRepository
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewSessionJanitor(sessions repository.SessionRepository, interval, retention time.Duration, logger *slog.Logger) *SessionJanitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionJanitor{sessions: sessions, interval: interval, retention: retention, logger: logger, now: time.Now}
}

// PurgeOnce deletes everything that went stale before now minus retention.
func (j *SessionJanitor) PurgeOnce(ctx context.Context) (int64, error) {
	n, err := j.sessions.PurgeStale(ctx, j.now().Add(-j.retention))
	if err != nil {
		return 0, internalError("purge sessions", err)
	}
	return n, nil
}

// Run purges on every tick until ctx is cancelled. A failed pass is logged
// and retried on the next tick. A non-positive interval disables the loop.
func (j *SessionJanitor) Run(ctx context.Context) error {
	if j.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := j.PurgeOnce(ctx)
			if err != nil {
				j.logger.WarnContext(ctx, "session purge failed", "error", err)
				continue
			}
			if n > 0 {
				j.logger.InfoContext(ctx, "stale sessions purged", "count", n)
			}
		}
	}
}
