package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/dukerupert/bizznex/internal"
	"github.com/dukerupert/bizznex/internal/auth"
	"github.com/dukerupert/bizznex/internal/billing"
	"github.com/dukerupert/bizznex/internal/email"
	"github.com/dukerupert/bizznex/internal/events"
	"github.com/dukerupert/bizznex/internal/pdf"
	"github.com/dukerupert/bizznex/internal/repository"
	"github.com/dukerupert/bizznex/internal/scheduler"
	"github.com/dukerupert/bizznex/internal/service"
	"github.com/dukerupert/bizznex/internal/storage"
	"github.com/dukerupert/bizznex/internal/telemetry"
	"github.com/dukerupert/bizznex/internal/worker"
)

// app owns the process-wide resources shared by every subcommand.
type app struct {
	cfg    *internal.Config
	logger *slog.Logger
	pool   *pgxpool.Pool

	services  *services
	publisher events.Publisher

	closers []func()
}

// services is everything the HTTP layer and the worker call into.
type services struct {
	store         repository.Store
	provider      billing.Provider
	archive       storage.Storage
	clients       service.ClientService
	jobs          service.JobService
	invoices      service.InvoiceService
	notifications service.NotificationService
	equipment     service.EquipmentService
	expenses      service.ExpenseService
	subscriptions service.SubscriptionService
}

func newApp(ctx context.Context) (*app, error) {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}

	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}
	a.closers = append(a.closers, flushSentry)

	telemetry.InitBusinessMetrics("bizznex")

	logger.Info("Connecting to database...")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		a.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	a.publisher, err = events.New(events.Config{URL: cfg.NATS.URL, Name: cfg.NATS.Name}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := a.publisher.Close(); err != nil {
			logger.Warn("failed to close event publisher", "error", err)
		}
	})

	a.services, err = newServices(repository.NewStore(pool), a.publisher, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newServices wires the services over store. External providers are
// configured from cfg; the Stripe provider falls back to the mock in dev
// when no key is set.
func newServices(store repository.Store, publisher events.Publisher, cfg *internal.Config, logger *slog.Logger) (*services, error) {
	// Outbound API calls are traced when Sentry is enabled
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: &telemetry.HTTPTransport{Transport: http.DefaultTransport},
	}

	stripeConfig := billing.StripeConfig{
		APIKey:         cfg.Stripe.SecretKey,
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		StarterPriceID: cfg.Stripe.StarterPriceID,
		ProPriceID:     cfg.Stripe.ProPriceID,
		MaxRetries:     2,
		HTTPClient:     httpClient,
	}

	var provider billing.Provider
	switch {
	case stripeConfig.APIKey != "":
		if err := stripeConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid Stripe configuration: %w", err)
		}
		sp, err := billing.NewStripeProvider(stripeConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Stripe provider: %w", err)
		}
		logger.Info("Stripe billing provider initialized", "test_mode", stripeConfig.IsTestMode())
		provider = sp
	case cfg.Env == "dev":
		logger.Warn("STRIPE_SECRET_KEY not set, using mock billing provider")
		provider = billing.NewMockProvider()
	default:
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required in %s", cfg.Env)
	}

	archive, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document storage: %w", err)
	}

	templates, err := email.LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	sender := email.NewSender(email.Config{
		PostmarkServerToken: cfg.Email.PostmarkToken,
		PostmarkBaseURL:     cfg.Email.PostmarkBaseURL,
		HTTPClient:          httpClient,
		SMTPHost:            cfg.Email.Host,
		SMTPPort:            cfg.Email.Port,
		SMTPUsername:        cfg.Email.Username,
		SMTPPassword:        cfg.Email.Password,
		FromAddress:         cfg.Email.From,
		FromName:            cfg.Email.FromName,
	}, logger)

	invoices := service.NewInvoiceService(store, pdf.NewRenderer(), publisher, service.InvoiceServiceConfig{
		Company: pdf.CompanyData{
			Name:    cfg.Company.Name,
			Address: cfg.Company.Address,
			Email:   cfg.Company.Email,
			Phone:   cfg.Company.Phone,
		},
		Currency: cfg.Currency,
	}, logger)

	return &services{
		store:    store,
		provider: provider,
		archive:  archive,
		clients:  service.NewClientService(store, logger),
		jobs:     service.NewJobService(store, logger),
		invoices: invoices,
		notifications: service.NewNotificationService(store, sender, templates, invoices, service.NotificationConfig{
			FromAddress: cfg.Email.From,
			FromName:    cfg.Email.FromName,
			CompanyName: cfg.Company.Name,
		}, logger),
		equipment: service.NewEquipmentService(store, logger),
		expenses:  service.NewExpenseService(store, logger),
		subscriptions: service.NewSubscriptionService(store, provider, auth.NewJWTVerifier(cfg.Auth.JWTSecret),
			stripeConfig, cfg.BaseURL, publisher, logger),
	}, nil
}

// migrate applies pending migrations through a database/sql handle over
// the pool.
func (a *app) migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(a.pool)
	defer db.Close()

	a.logger.Info("Running database migrations...")
	if err := internal.RunMigrations(ctx, db, a.logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (a *app) newWorker() *worker.Worker {
	return worker.NewWorker(a.services.store, a.services.notifications, a.services.invoices, worker.Config{
		WorkerID:        a.cfg.Worker.ID,
		PollInterval:    a.cfg.Worker.PollInterval,
		MaxConcurrency:  a.cfg.Worker.MaxConcurrency,
		RetryBackoff:    a.cfg.Worker.RetryBackoff,
		MaxBackoff:      a.cfg.Worker.MaxBackoff,
		ShutdownTimeout: a.cfg.Worker.ShutdownTimeout,
	}, a.logger)
}

func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	return scheduler.New(a.services.store, scheduler.Config{
		OverdueSpec:  a.cfg.OverdueCron,
		PurgeSpec:    a.cfg.PurgeCron,
		JobRetention: a.cfg.JobRetention,
	}, a.logger)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
