package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// SecurityHeadersConfig lists the response headers set on every request.
// Empty values are omitted.
type SecurityHeadersConfig struct {
	ContentSecurityPolicy string
	FrameOptions          string
	ReferrerPolicy        string
	PermissionsPolicy     string

	// HSTS is the Strict-Transport-Security max-age; zero disables it. The
	// header is only sent on HTTPS requests, including those terminated at
	// a proxy that sets X-Forwarded-Proto.
	HSTS           time.Duration
	HSTSSubdomains bool
}

// DefaultSecurityHeadersConfig suits an API that answers with JSON and PDF
// documents and never HTML.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		FrameOptions:          "DENY",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "camera=(), microphone=(), geolocation=(), payment=()",
		HSTS:                  365 * 24 * time.Hour,
		HSTSSubdomains:        true,
	}
}

// SecurityHeaders sets the configured headers before calling next.
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	static := http.Header{}
	static.Set("X-Content-Type-Options", "nosniff")
	for name, value := range map[string]string{
		"Content-Security-Policy": config.ContentSecurityPolicy,
		"X-Frame-Options":         config.FrameOptions,
		"Referrer-Policy":         config.ReferrerPolicy,
		"Permissions-Policy":      config.PermissionsPolicy,
	} {
		if value != "" {
			static.Set(name, value)
		}
	}

	var hsts string
	if config.HSTS > 0 {
		hsts = "max-age=" + strconv.Itoa(int(config.HSTS.Seconds()))
		if config.HSTSSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for name := range static {
				h.Set(name, static.Get(name))
			}
			if hsts != "" && isHTTPS(r) {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
