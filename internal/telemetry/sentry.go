package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64 // 0 means 1.0
	TracesSampleRate float64 // 0 disables tracing
	Debug            bool
}

var enabled atomic.Bool

// InitSentry configures the global client. The returned func flushes
// buffered events and must run before exit. With Sentry disabled every
// helper in this file is a no-op.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	enabled.Store(false)
	noop := func() {}

	switch {
	case !cfg.Enabled:
		logger.Info("Sentry disabled")
		return noop, nil
	case cfg.DSN == "":
		logger.Warn("SENTRY_DSN not set, error tracking disabled")
		return noop, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		BeforeSend:       scrubRequestBody,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	enabled.Store(true)

	logger.Info("Sentry initialized",
		"environment", cfg.Environment,
		"release", cfg.Release,
		"sample_rate", sampleRate,
		"traces_sample_rate", cfg.TracesSampleRate,
	)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// scrubRequestBody drops request bodies: webhook payloads and invoice
// documents carry client details.
func scrubRequestBody(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		event.Request.Data = ""
	}
	return event
}

func IsEnabled() bool {
	return enabled.Load()
}

// hubFor returns the request hub, falling back to the process hub.
func hubFor(ctx context.Context) *sentry.Hub {
	if ctx != nil {
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			return hub
		}
	}
	return sentry.CurrentHub()
}

// Capture reports err on the hub attached to ctx, keeping any user and
// request details set by the middleware.
func Capture(ctx context.Context, err error, extras map[string]any) {
	if !IsEnabled() || err == nil {
		return
	}
	hub := hubFor(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		hub.CaptureException(err)
	})
}

// Breadcrumb records a step that is attached to the next captured event.
func Breadcrumb(ctx context.Context, category, message string, data map[string]any) {
	if !IsEnabled() {
		return
	}
	hubFor(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Data:      data,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}, nil)
}

// SentryMiddleware gives each request its own hub and reports panics
// before passing them on to the recovery middleware.
func SentryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(r)
			if r.Pattern != "" {
				hub.Scope().SetTag("route", r.Pattern)
			}
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				if v := recover(); v != nil {
					hub.RecoverWithContext(ctx, v)
					hub.Flush(flushTimeout)
					panic(v)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserInfo is the caller as reported to Sentry.
type UserInfo struct {
	ID    string
	Email string
}

// UserContextExtractor extracts the authenticated user from a request context.
type UserContextExtractor func(ctx context.Context) *UserInfo

// SentryUserMiddleware sets the caller on the request hub. It must run after
// authentication and after SentryMiddleware.
func SentryUserMiddleware(extract UserContextExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsEnabled() && extract != nil {
				if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
					if user := extract(r.Context()); user != nil {
						hub.Scope().SetUser(sentry.User{ID: user.ID, Email: user.Email})
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTTPTransport records outbound calls (Stripe, Postmark) as spans on the
// caller's transaction.
type HTTPTransport struct {
	Transport http.RoundTripper
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if !IsEnabled() {
		return base.RoundTrip(req)
	}

	span := sentry.StartSpan(req.Context(), "http.client")
	span.Description = req.Method + " " + req.URL.Host + req.URL.Path
	defer span.Finish()

	resp, err := base.RoundTrip(req)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}
	span.Status = sentry.HTTPtoSpanStatus(resp.StatusCode)
	span.SetData("http.status_code", resp.StatusCode)
	return resp, nil
}
