package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bizznex/internal/auth"
	"github.com/dukerupert/bizznex/internal/domain"
)

const testSecret = "test-secret"

func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, domain.Actor(r.Context()))
})

func TestAuth(t *testing.T) {
	token, err := auth.IssueToken(testSecret, "user-1", "owner@acme.test", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name        string
		bypass      bool
		header      string
		wantStatus  int
		wantBody    string
		wantMessage string
	}{
		{
			name:       "valid token",
			header:     "Bearer " + token,
			wantStatus: http.StatusOK,
			wantBody:   "user-1",
		},
		{
			name:        "missing token",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Missing authorization token",
		},
		{
			name:        "invalid token",
			header:      "Bearer garbage",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid or expired token",
		},
		{
			name:       "bypass without token",
			bypass:     true,
			wantStatus: http.StatusOK,
			wantBody:   domain.BypassUserID,
		},
		{
			name:       "bypass keeps a real user",
			bypass:     true,
			header:     "Bearer " + token,
			wantStatus: http.StatusOK,
			wantBody:   "user-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := chain(echoUser,
				WithUser(auth.NewJWTVerifier(testSecret)),
				RequireAuth(AuthConfig{Bypass: tt.bypass}),
			)
			req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMessage != "" {
				var body errorEnvelope
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.False(t, body.Success)
				assert.Equal(t, tt.wantMessage, body.Message)
				assert.Equal(t, domain.EUNAUTHORIZED, body.Code)
				return
			}
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestWithUser_InvalidTokenContinuesAnonymously(t *testing.T) {
	h := WithUser(auth.NewJWTVerifier(testSecret))(echoUser)
	req := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "lb-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "lb-123", seen)
		assert.Equal(t, "lb-123", rec.Header().Get(RequestIDHeader))
	})

	t.Run("oversized header replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Len(t, seen, 36)
	})

	t.Run("control characters replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc\tdef")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Len(t, seen, 36)
	})
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(DefaultSecurityHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clients", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "plain HTTP gets no HSTS")

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"GET /api/clients/{id}", "/api/clients/{id}"},
		{"POST /api/generate-invoice-pdf", "/api/generate-invoice-pdf"},
		{"/metrics", "/metrics"},
		{"", unmatchedRoute},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, routeLabel(tt.pattern))
		})
	}
}

func TestMetrics_CountsRequestsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	mux := http.NewServeMux()
	mux.Handle("GET /api/clients/{id}", m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	for _, id := range []string{"a", "b", "c"} {
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clients/"+id, nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/clients/{id}", "404"))
	assert.Equal(t, float64(3), got)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 0.5,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
		KeyFunc:           GetClientIP,
	})
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	do := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1001").Code)

	limited := do("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "2", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("10.0.0.2:1000").Code, "limits are per client")
}

func TestRateLimiter_RefillAndSweep(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("a")
	require.True(t, ok)
	ok, wait := rl.Allow("a")
	require.False(t, ok)
	assert.Equal(t, time.Second, wait)

	now = now.Add(time.Second)
	ok, _ = rl.Allow("a")
	assert.True(t, ok, "one token refilled after a second")

	now = now.Add(2 * time.Minute)
	rl.sweep()
	assert.Empty(t, rl.visitors)

	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		realIP string
		remote string
		want   string
	}{
		{name: "forwarded chain", xff: "203.0.113.7, 10.0.0.1", remote: "10.0.0.1:5000", want: "203.0.113.7"},
		{name: "forwarded with spaces", xff: "  203.0.113.7 ", remote: "10.0.0.1:5000", want: "203.0.113.7"},
		{name: "malformed forwarded falls through", xff: "unknown", realIP: "198.51.100.2", remote: "10.0.0.1:5000", want: "198.51.100.2"},
		{name: "mapped ipv4", realIP: "::ffff:198.51.100.2", remote: "10.0.0.1:5000", want: "198.51.100.2"},
		{name: "remote addr", remote: "192.0.2.9:443", want: "192.0.2.9"},
		{name: "remote addr without port", remote: "192.0.2.9", want: "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.9:443"
	assert.Equal(t, "ip:192.0.2.9", ClientKey(req))

	req = req.WithContext(domain.NewContextWithUser(req.Context(), &domain.User{ID: "user-1"}))
	assert.Equal(t, "user:user-1", ClientKey(req))
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	h := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = io.WriteString(w, "late")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "late")
}

func TestTimeout_PropagatesPanic(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	assert.PanicsWithValue(t, "boom", func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
