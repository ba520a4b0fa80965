package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// LogNotifier prints the reset link to a local console instead of mailing it.
// It is for local development only; config rejects it in production.
//
// The structured log never carries the link or token, only a short
// fingerprint, so log shipping does not leak live credentials.
type LogNotifier struct {
	logger       *slog.Logger
	mu           sync.Mutex
	out          io.Writer
	resetURLBase string
}

func NewLogNotifier(logger *slog.Logger, out io.Writer, resetURLBase string) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = os.Stderr
	}
	return &LogNotifier{logger: logger, out: out, resetURLBase: resetURLBase}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	link, err := ResetLink(n.resetURLBase, token)
	if err != nil {
		return err
	}
	n.mu.Lock()
	_, err = fmt.Fprintf(n.out, "password reset link for %s: %s\n", email, link)
	n.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write reset link: %w", err)
	}
	n.logger.InfoContext(ctx, "password reset link issued (development notifier)",
		"recipient", email,
		"token_fingerprint", TokenFingerprint(token),
	)
	return nil
}

// TokenFingerprint identifies a token in logs without revealing it.
func TokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}
