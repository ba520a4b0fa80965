package config

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	configMetricsOnce sync.Once
	configLoads       metric.Int64Counter
)

// recordConfigValidationEvent counts one Load attempt. The profile attribute is
// folded onto a fixed set so a typo in APP_ENV cannot grow the series count.
func recordConfigValidationEvent(ctx context.Context, profile, outcome, errorClass string) {
	configMetricsOnce.Do(func() {
		counter, err := otel.Meter("elearning-auth-service/config").Int64Counter(
			"config.validation.events",
			metric.WithDescription("configuration load attempts by profile, outcome and error class"),
		)
		if err == nil {
			configLoads = counter
		}
	})
	if configLoads == nil {
		return
	}
	configLoads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", normalizeConfigProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", errorClass),
	))
}

func normalizeConfigProfile(profile string) string {
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "":
		return "unknown"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing", "ci":
		return "test"
	case "dev", "development", "local":
		return "development"
	default:
		return "other"
	}
}

// classifyConfigLoadError buckets the errors produced by Load and FromEnv by
// their message prefix.
func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.HasPrefix(msg, "validate config:"):
		return "validation"
	case strings.HasPrefix(msg, "parse "):
		return "parse"
	case strings.HasPrefix(msg, "open env file") || strings.HasPrefix(msg, "read env file"):
		return "env_file"
	default:
		return "load"
	}
}
