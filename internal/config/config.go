package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string
	LogLevel string

	DatabaseDriver string
	DatabaseURL    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret     string
	JWTIssuer     string
	JWTAudience   string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	BcryptCost    int

	Notifier     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	ResetURLBase string

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration

	SessionPurgeInterval time.Duration
	SessionRetention     time.Duration

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
}

const (
	minJWTSecretLength = 32
	maxBcryptCost      = 16
)

// Load reads an optional .env file, then builds Config from the environment.
// Variables already present in the environment win over the file.
func Load() (*Config, error) {
	if err := LoadEnvFile(".env"); err != nil {
		recordConfigValidationEvent(context.Background(), os.Getenv("APP_ENV"), outcomeOf(err), classifyConfigLoadError(err))
		return nil, err
	}
	cfg, err := FromEnv()
	recordConfigValidationEvent(context.Background(), os.Getenv("APP_ENV"), outcomeOf(err), classifyConfigLoadError(err))
	return cfg, err
}

// LoadEnvFile loads KEY=VALUE pairs without overriding existing variables.
// A missing file is ignored.
func LoadEnvFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open env file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("open env file: %s is a directory", path)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("read env file: %w", err)
	}
	return nil
}

func FromEnv() (*Config, error) {
	p := &envParser{}
	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       p.int("REDIS_DB", 0),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTIssuer:     getEnv("JWT_ISSUER", "elearning-auth"),
		JWTAudience:   getEnv("JWT_AUDIENCE", "elearning-api"),
		JWTAccessTTL:  p.duration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL: p.duration("JWT_REFRESH_TTL", 7*24*time.Hour),
		BcryptCost:    p.int("BCRYPT_COST", 12),

		Notifier:     strings.ToLower(getEnv("NOTIFIER", "log")),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     p.int("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@elearning.local"),
		ResetURLBase: getEnv("RESET_URL_BASE", "http://localhost:8080/reset-password"),

		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "elearning-auth-service"),
		OTELEnvironment:           getEnv("OTEL_ENVIRONMENT", getEnv("APP_ENV", "development")),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  p.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:        p.bool("OTEL_METRICS_ENABLED", false),
		OTELTracingEnabled:        p.bool("OTEL_TRACING_ENABLED", false),
		OTELLogsEnabled:           p.bool("OTEL_LOGS_ENABLED", false),
		OTELMetricsExportInterval: p.duration("OTEL_METRICS_EXPORT_INTERVAL", 10*time.Second),

		SessionPurgeInterval: p.duration("SESSION_PURGE_INTERVAL", time.Hour),
		SessionRetention:     p.duration("SESSION_RETENTION", 24*time.Hour),

		ShutdownTimeout:              p.duration("SHUTDOWN_TIMEOUT", 20*time.Second),
		ShutdownHTTPDrainTimeout:     p.duration("SHUTDOWN_HTTP_DRAIN_TIMEOUT", 10*time.Second),
		ShutdownObservabilityTimeout: p.duration("SHUTDOWN_OBSERVABILITY_TIMEOUT", 5*time.Second),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength))
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive"))
	}
	if c.JWTRefreshTTL < c.JWTAccessTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must not be shorter than JWT_ACCESS_TTL"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > maxBcryptCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and %d", maxBcryptCost))
	}
	if c.RedisAddr == "" && c.IsProduction() {
		errs = append(errs, errors.New("REDIS_ADDR is required when APP_ENV=production"))
	}
	if c.SessionRetention < 0 {
		errs = append(errs, errors.New("SESSION_RETENTION must not be negative"))
	}
	switch c.Notifier {
	case "log":
		if c.IsProduction() {
			errs = append(errs, errors.New("NOTIFIER=log is not allowed when APP_ENV=production"))
		}
	case "smtp":
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required when NOTIFIER=smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFIER must be log or smtp, got %q", c.Notifier))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return normalizeConfigProfile(c.Env) == "production"
}

type envParser struct {
	err error
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" || p.err != nil {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
		return def
	}
	return d
}

func (p *envParser) int(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" || p.err != nil {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
		return def
	}
	return v
}

func (p *envParser) bool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" || p.err != nil {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
		return def
	}
	return v
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func outcomeOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
