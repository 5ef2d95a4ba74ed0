package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env          string
	LogLevel     string
	Port         uint16
	DatabaseURL  string
	BaseURL      string
	CORSOrigins  []string
	OverdueCron  string
	PurgeCron    string
	JobRetention time.Duration
	Currency     string
	Company      CompanyConfig
	Stripe       StripeConfig
	Email        EmailConfig
	Storage      StorageConfig
	Sentry       SentryConfig
	Auth         AuthConfig
	Worker       WorkerConfig
	NATS         NATSConfig
}

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
	Debug            bool
}

type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	StarterPriceID string
	ProPriceID     string
}

// EmailConfig selects the outbound provider. Postmark wins when a server
// token is set, then SMTP.
type EmailConfig struct {
	PostmarkToken   string
	PostmarkBaseURL string
	Host            string
	Port            int
	Username        string
	Password        string
	From            string
	FromName        string
}

// CompanyConfig is the business profile printed on invoices and mail.
type CompanyConfig struct {
	Name    string
	Address string
	Email   string
	Phone   string
}

type StorageConfig struct {
	Provider      string // "local" or "s3"
	LocalPath     string
	LocalURL      string
	S3Endpoint    string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
	S3Bucket      string
	S3PublicURL   string
}

// AuthConfig configures bearer token verification. Bypass is for local
// development only and is refused in prod.
type AuthConfig struct {
	JWTSecret string
	Bypass    bool
}

type WorkerConfig struct {
	ID              string
	PollInterval    time.Duration
	MaxConcurrency  int
	RetryBackoff    time.Duration
	MaxBackoff      time.Duration
	ShutdownTimeout time.Duration
}

// NATSConfig is optional; events are dropped when URL is empty.
type NATSConfig struct {
	URL  string
	Name string
}

func NewConfig() (*Config, error) {
	loadDotEnv()
	return loadConfig(newViper())
}

// loadDotEnv loads .env from the working directory, walking up at most two
// parents.
func loadDotEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}
	dir, _ := os.Getwd()
	for i := 0; i < 2; i++ {
		dir = filepath.Join(dir, "..")
		if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
			return
		}
	}
	slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 3000)
	v.SetDefault("BASE_URL", "http://localhost:3000")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("OVERDUE_CRON", "")
	v.SetDefault("PURGE_CRON", "")
	v.SetDefault("JOB_RETENTION", "720h")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("AUTH_BYPASS", false)

	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("STRIPE_STARTER_PRICE_ID", "")
	v.SetDefault("STRIPE_PRO_PRICE_ID", "")

	v.SetDefault("POSTMARK_SERVER_TOKEN", "")
	v.SetDefault("POSTMARK_BASE_URL", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("EMAIL_FROM", "billing@bizznex.local")
	v.SetDefault("EMAIL_FROM_NAME", "Bizznex")
	v.SetDefault("COMPANY_NAME", "Bizznex")
	v.SetDefault("COMPANY_ADDRESS", "")
	v.SetDefault("COMPANY_EMAIL", "")
	v.SetDefault("COMPANY_PHONE", "")
	v.SetDefault("CURRENCY", "USD")

	v.SetDefault("STORAGE_PROVIDER", "local")
	v.SetDefault("LOCAL_STORAGE_PATH", "./data/invoices")
	v.SetDefault("LOCAL_STORAGE_URL", "/files")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_REGION", "auto")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_PUBLIC_URL", "")

	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("SENTRY_ENABLED", false)
	v.SetDefault("SENTRY_ENVIRONMENT", "development")
	v.SetDefault("SENTRY_RELEASE", "")
	v.SetDefault("SENTRY_SAMPLE_RATE", 1.0)
	v.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.0)
	v.SetDefault("SENTRY_DEBUG", false)

	v.SetDefault("WORKER_ID", "")
	v.SetDefault("WORKER_POLL_INTERVAL", "1s")
	v.SetDefault("WORKER_MAX_CONCURRENCY", 5)
	v.SetDefault("WORKER_RETRY_BACKOFF", "30s")
	v.SetDefault("WORKER_MAX_BACKOFF", "30m")
	v.SetDefault("WORKER_SHUTDOWN_TIMEOUT", "30s")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_NAME", "bizznex")

	return v
}

func loadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:          v.GetString("ENV"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		Port:         v.GetUint16("PORT"),
		DatabaseURL:  v.GetString("DATABASE_URL"),
		BaseURL:      strings.TrimSuffix(v.GetString("BASE_URL"), "/"),
		CORSOrigins:  splitList(v.GetString("CORS_ORIGINS")),
		OverdueCron:  v.GetString("OVERDUE_CRON"),
		PurgeCron:    v.GetString("PURGE_CRON"),
		JobRetention: v.GetDuration("JOB_RETENTION"),
		Currency:     strings.ToUpper(v.GetString("CURRENCY")),
		Company: CompanyConfig{
			Name:    v.GetString("COMPANY_NAME"),
			Address: v.GetString("COMPANY_ADDRESS"),
			Email:   v.GetString("COMPANY_EMAIL"),
			Phone:   v.GetString("COMPANY_PHONE"),
		},
		Stripe: StripeConfig{
			SecretKey:      v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret:  v.GetString("STRIPE_WEBHOOK_SECRET"),
			StarterPriceID: v.GetString("STRIPE_STARTER_PRICE_ID"),
			ProPriceID:     v.GetString("STRIPE_PRO_PRICE_ID"),
		},
		Email: EmailConfig{
			PostmarkToken:   v.GetString("POSTMARK_SERVER_TOKEN"),
			PostmarkBaseURL: v.GetString("POSTMARK_BASE_URL"),
			Host:            v.GetString("SMTP_HOST"),
			Port:            v.GetInt("SMTP_PORT"),
			Username:        v.GetString("SMTP_USERNAME"),
			Password:        v.GetString("SMTP_PASSWORD"),
			From:            v.GetString("EMAIL_FROM"),
			FromName:        v.GetString("EMAIL_FROM_NAME"),
		},
		Storage: StorageConfig{
			Provider:      v.GetString("STORAGE_PROVIDER"),
			LocalPath:     v.GetString("LOCAL_STORAGE_PATH"),
			LocalURL:      v.GetString("LOCAL_STORAGE_URL"),
			S3Endpoint:    v.GetString("S3_ENDPOINT"),
			S3Region:      v.GetString("S3_REGION"),
			S3AccessKeyID: v.GetString("S3_ACCESS_KEY_ID"),
			S3SecretKey:   v.GetString("S3_SECRET_ACCESS_KEY"),
			S3Bucket:      v.GetString("S3_BUCKET"),
			S3PublicURL:   v.GetString("S3_PUBLIC_URL"),
		},
		Sentry: SentryConfig{
			DSN:              v.GetString("SENTRY_DSN"),
			Enabled:          v.GetBool("SENTRY_ENABLED"),
			Environment:      v.GetString("SENTRY_ENVIRONMENT"),
			Release:          v.GetString("SENTRY_RELEASE"),
			SampleRate:       v.GetFloat64("SENTRY_SAMPLE_RATE"),
			TracesSampleRate: v.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
			Debug:            v.GetBool("SENTRY_DEBUG"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Bypass:    v.GetBool("AUTH_BYPASS"),
		},
		Worker: WorkerConfig{
			ID:              v.GetString("WORKER_ID"),
			PollInterval:    v.GetDuration("WORKER_POLL_INTERVAL"),
			MaxConcurrency:  v.GetInt("WORKER_MAX_CONCURRENCY"),
			RetryBackoff:    v.GetDuration("WORKER_RETRY_BACKOFF"),
			MaxBackoff:      v.GetDuration("WORKER_MAX_BACKOFF"),
			ShutdownTimeout: v.GetDuration("WORKER_SHUTDOWN_TIMEOUT"),
		},
		NATS: NATSConfig{
			URL:  v.GetString("NATS_URL"),
			Name: v.GetString("NATS_NAME"),
		},
	}

	// Validate env
	if cfg.Env != "dev" && cfg.Env != "prod" {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	if cfg.Env == "prod" {
		if cfg.Auth.Bypass {
			return nil, errors.New("AUTH_BYPASS must not be enabled in prod")
		}
		if cfg.Auth.JWTSecret == "" {
			return nil, errors.New("JWT_SECRET must be set in prod")
		}
	}

	if cfg.Storage.Provider == "s3" && cfg.Storage.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET required when STORAGE_PROVIDER=s3")
	}

	if cfg.Worker.MaxConcurrency < 1 {
		cfg.Worker.MaxConcurrency = 1
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
