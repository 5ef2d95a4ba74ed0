package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSentry_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name string
		cfg  SentryConfig
	}{
		{name: "explicitly disabled", cfg: SentryConfig{Enabled: false, DSN: "https://key@example.com/1"}},
		{name: "enabled without dsn", cfg: SentryConfig{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flush, err := InitSentry(tt.cfg, logger)
			require.NoError(t, err)
			require.NotNil(t, flush)
			flush()
			assert.False(t, IsEnabled())

			assert.NotPanics(t, func() {
				Capture(context.Background(), errors.New("ignored"), nil)
				Breadcrumb(context.Background(), "invoice", "created", nil)
			})
		})
	}
}

func TestSentryMiddleware_PassThroughWhenDisabled(t *testing.T) {
	_, err := InitSentry(SentryConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	called := false
	h := SentryMiddleware()(SentryUserMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clients", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSentryMiddleware_PanicsPassThrough(t *testing.T) {
	_, err := InitSentry(SentryConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	h := SentryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	assert.PanicsWithValue(t, "boom", func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestHTTPTransport_Delegates(t *testing.T) {
	_, err := InitSentry(SentryConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	var hits int
	client := &http.Client{Transport: &HTTPTransport{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		hits++
		return &http.Response{StatusCode: http.StatusAccepted, Body: http.NoBody, Request: r}, nil
	})}}

	resp, err := client.Get("https://api.postmarkapp.com/email")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, hits)
}
