package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Audit writes a security-relevant event. Callers must never pass passwords
// or reset tokens in attrs.
func Audit(ctx context.Context, logger *slog.Logger, event string, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	base := []any{"event", event}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		base = append(base, "trace_id", sc.TraceID().String())
	}
	base = append(base, attrs...)
	logger.InfoContext(ctx, "audit", base...)
}
