package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const loggerKey contextKey = "logger"

// WithRequestLogger stores a logger tagged with the request ID, method and
// path. It must run after RequestID; WithUser later adds user_id.
func WithRequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attrs := []any{slog.String("method", r.Method), slog.String("path", r.URL.Path)}
			if id := GetRequestID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			next.ServeHTTP(w, r.WithContext(withLogger(r.Context(), base.With(attrs...))))
		})
	}
}

// AccessLog logs one "request" record per response. 5xx responses are
// logged at error level.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		cw := &countingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(cw, r)

		level := slog.LevelInfo
		if cw.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		GetLogger(r.Context()).Log(r.Context(), level, "request",
			slog.Int("status", cw.status),
			slog.Int("bytes", cw.written),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", GetClientIPFromContext(r.Context())),
		)
	})
}

func withLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// GetLogger returns the request logger, else the first non-nil fallback,
// else slog.Default().
func GetLogger(ctx context.Context, fallback ...*slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	for _, l := range fallback {
		if l != nil {
			return l
		}
	}
	return slog.Default()
}
