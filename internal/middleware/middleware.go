// Package middleware holds the HTTP middleware shared by every route group.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/bizznex/internal/domain"
)

// errorEnvelope matches handler.ErrorBody; handler imports this package so
// the type cannot be shared.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// reject answers with the failure envelope for code and message.
func reject(w http.ResponseWriter, r *http.Request, code, message string) {
	status := domain.HTTPStatus(code)

	logger := GetLogger(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request rejected", "code", code, "status", status, "reason", message)
	} else {
		logger.InfoContext(r.Context(), "request rejected", "code", code, "status", status, "reason", message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Message: message, Code: code})
}

func respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	reject(w, r, domain.EUNAUTHORIZED, message)
}

func respondTooManyRequests(w http.ResponseWriter, r *http.Request) {
	reject(w, r, domain.ERATELIMIT, "Too many requests")
}

func respondTooLarge(w http.ResponseWriter, r *http.Request) {
	reject(w, r, domain.ETOOLARGE, "Request body too large")
}

// respondTimeout is sent as 500 with the internal code; the message is
// fixed so nothing from the handler leaks.
func respondTimeout(w http.ResponseWriter, r *http.Request) {
	reject(w, r, domain.EINTERNAL, "Request timeout")
}
