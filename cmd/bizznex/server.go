package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/bizznex/internal"
	"github.com/dukerupert/bizznex/internal/auth"
	"github.com/dukerupert/bizznex/internal/handler"
	"github.com/dukerupert/bizznex/internal/handler/api"
	"github.com/dukerupert/bizznex/internal/handler/billing"
	"github.com/dukerupert/bizznex/internal/handler/webhook"
	"github.com/dukerupert/bizznex/internal/middleware"
	"github.com/dukerupert/bizznex/internal/router"
	"github.com/dukerupert/bizznex/internal/routes"
	"github.com/dukerupert/bizznex/internal/scheduler"
	"github.com/dukerupert/bizznex/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

// pinger reports database reachability for /health.
type pinger interface {
	Ping(ctx context.Context) error
}

// server holds the assembled handler and the limiters that need stopping.
type server struct {
	handler  http.Handler
	limiters []*middleware.RateLimiter
}

func (s *server) Stop() {
	for _, l := range s.limiters {
		l.Stop()
	}
}

// newServer assembles middleware and routes over svc. reg receives the HTTP
// metrics; db may be nil.
func newServer(svc *services, cfg *internal.Config, db pinger, reg prometheus.Registerer, logger *slog.Logger) *server {
	metrics := middleware.NewMetrics("bizznex", reg)

	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		securityConfig.HSTS = 0
	}

	// Configure rate limiting
	defaultLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	checkoutLimiter := middleware.NewRateLimiter(middleware.StrictRateLimiterConfig())

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithClientIP(),
		telemetry.SentryMiddleware(),
		middleware.WithRequestLogger(logger),
		middleware.AccessLog,
		metrics.Middleware,
		middleware.SecurityHeaders(securityConfig),
		router.CORS(cfg.CORSOrigins),
		defaultLimiter.Middleware,
		middleware.WithUser(auth.NewJWTVerifier(cfg.Auth.JWTSecret)),
		telemetry.SentryUserMiddleware(sentryUser),
	)

	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		Health:  healthHandler(db),
		Metrics: metrics.Handler(),
	})

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		Clients:   api.NewClientHandler(svc.clients),
		Jobs:      api.NewJobHandler(svc.jobs),
		Invoices:  api.NewInvoiceHandler(svc.invoices, svc.clients, svc.archive, logger),
		Emails:    api.NewEmailHandler(svc.notifications),
		Equipment: api.NewEquipmentHandler(svc.equipment),
		Expenses:  api.NewExpenseHandler(svc.expenses),
		Auth:      middleware.AuthConfig{Bypass: cfg.Auth.Bypass},
	})

	routes.RegisterBillingRoutes(r, routes.BillingDeps{
		Checkout: billing.NewCheckoutHandler(svc.subscriptions, logger),
		Limiter:  checkoutLimiter.Middleware,
	})

	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		Stripe: webhook.NewStripeHandler(svc.provider, svc.subscriptions, logger),
	})

	logger.Debug("routes registered", "routes", r.Routes())

	if cfg.Auth.Bypass {
		logger.Warn("AUTH_BYPASS enabled: /api routes accept requests without a token")
	}

	return &server{
		handler:  r,
		limiters: []*middleware.RateLimiter{defaultLimiter, checkoutLimiter},
	}
}

func sentryUser(ctx context.Context) *telemetry.UserInfo {
	user := middleware.GetUserFromContext(ctx)
	if user == nil {
		return nil
	}
	return &telemetry.UserInfo{ID: user.ID, Email: user.Email}
}

func healthHandler(db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				middleware.GetLogger(r.Context()).Error("health check failed", "error", err)
				handler.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		handler.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// serve runs the HTTP server and, when withWorker is set, the worker and
// scheduler. It returns after all of them have stopped.
func (a *app) serve(ctx context.Context, withWorker bool) error {
	var sched *scheduler.Scheduler
	if withWorker {
		var err error
		if sched, err = a.newScheduler(); err != nil {
			return err
		}
	}

	srv := newServer(a.services, a.cfg, a.pool, prometheus.DefaultRegisterer, a.logger)
	defer srv.Stop()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if sched != nil {
		a.startBackground(ctx, g, sched)
	}

	return g.Wait()
}

// work runs the worker and scheduler without the HTTP server.
func (a *app) work(ctx context.Context) error {
	sched, err := a.newScheduler()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startBackground(ctx, g, sched)
	return g.Wait()
}

func (a *app) startBackground(ctx context.Context, g *errgroup.Group, sched *scheduler.Scheduler) {
	w := a.newWorker()
	g.Go(func() error { return w.Start(ctx) })
	g.Go(func() error { return sched.Run(ctx) })
}
