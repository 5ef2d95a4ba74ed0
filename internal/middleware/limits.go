package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const (
	KB = 1 << 10
	MB = 1 << 20

	// DefaultMaxBodySize covers invoice documents with many line items.
	DefaultMaxBodySize = 10 * MB
	SmallMaxBodySize   = 1 * MB
	WebhookMaxBodySize = 512 * KB

	DefaultTimeout = 30 * time.Second
	// DocumentTimeout allows for PDF rendering and archiving.
	DocumentTimeout = time.Minute
)

// MaxBodySize rejects bodies declared larger than limit with 413 and caps
// the rest with http.MaxBytesReader.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				respondTooLarge(w, r)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout cancels the request context after d. If the handler has not
// started its response by then the client gets the timeout envelope and
// later writes are discarded. A panic in the handler is re-raised on the
// serving goroutine.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			gw := &guardedWriter{ResponseWriter: w}
			finished := make(chan any, 1)

			go func() {
				var recovered any
				defer func() { finished <- recovered }()
				defer func() { recovered = recover() }()
				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case p := <-finished:
				if p != nil {
					panic(p)
				}
			case <-ctx.Done():
				if gw.expire() {
					respondTimeout(w, r)
				}
			}
		})
	}
}

// guardedWriter stops forwarding writes once the deadline has passed.
type guardedWriter struct {
	http.ResponseWriter

	mu      sync.Mutex
	started bool
	expired bool
}

// expire marks the writer dead and reports whether the response was still
// untouched.
func (w *guardedWriter) expire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expired = true
	return !w.started
}

func (w *guardedWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.expired {
		return
	}
	w.started = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *guardedWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expired {
		return 0, http.ErrHandlerTimeout
	}
	w.started = true
	return w.ResponseWriter.Write(b)
}
