package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// trace returns middleware that records name before and after next.
func trace(order *[]string, name string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, name)
			next.ServeHTTP(w, r)
			*order = append(*order, "/"+name)
		})
	}
}

func TestRouter_ChainOrder(t *testing.T) {
	var order []string
	r := New(trace(&order, "global"))
	g := r.Group(trace(&order, "group"))
	g.Get("/api/clients", func(w http.ResponseWriter, req *http.Request) {
		order = append(order, "handler")
	}, trace(&order, "route"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clients", nil))

	assert.Equal(t, []string{"global", "group", "route", "handler", "/route", "/group", "/global"}, order)
}

func TestRouter_GroupDoesNotLeak(t *testing.T) {
	var order []string
	r := New()
	_ = r.Group(trace(&order, "group"))
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Empty(t, order)
}

func TestRouter_MiddlewareSeesPattern(t *testing.T) {
	var pattern, id string
	capture := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			pattern, id = req.Pattern, req.PathValue("id")
			next.ServeHTTP(w, req)
		})
	}
	r := New(capture)
	r.Get("/api/invoices/{id}", func(w http.ResponseWriter, req *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/invoices/abc-123", nil))

	assert.Equal(t, "GET /api/invoices/{id}", pattern)
	assert.Equal(t, "abc-123", id)
}

func TestRouter_MethodMismatch(t *testing.T) {
	r := New()
	r.Post("/api/clients", func(w http.ResponseWriter, req *http.Request) {})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/clients", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_Routes(t *testing.T) {
	r := New()
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {})
	r.Group().Delete("/api/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {})

	assert.Equal(t, []string{"GET /health", "DELETE /api/jobs/{id}"}, r.Routes())
}

func TestCORS_Preflight(t *testing.T) {
	r := New(CORS([]string{"https://app.bizznex.test"}))
	r.Options("/api/", func(w http.ResponseWriter, req *http.Request) {
		t.Error("preflight should be answered by the middleware")
	})
	r.Post("/api/clients", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/clients", nil)
	req.Header.Set("Origin", "https://app.bizznex.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.bizznex.test" {
		t.Errorf("unexpected allow-origin %q", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Invoice-Persist-Error") {
		t.Errorf("persist error header not exposed: %q", got)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	r := New(CORS([]string{"https://app.bizznex.test"}))
	r.Get("/api/clients", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	req.Header.Set("Origin", "https://evil.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin, got %q", got)
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := New(Recovery(logger))
	r.Get("/boom", func(w http.ResponseWriter, req *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON body, got %q", ct)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Error("panic value leaked to the client")
	}
}
