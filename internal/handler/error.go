// Package handler holds the JSON envelope and error mapping shared by the
// HTTP handlers.
package handler

import (
	"net/http"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/middleware"
	"github.com/dukerupert/bizznex/internal/telemetry"
)

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse logs err and writes the failure envelope. Internal errors
// are reported to Sentry and their details are never sent to the client.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := domain.HTTPStatus(code)
	body := ErrorBody{
		Success: false,
		Message: domain.ErrorMessage(err),
		Code:    code,
	}

	if fields := domain.GetValidationFields(err); len(fields) > 0 {
		body.Fields = fields
		if len(fields) == 1 {
			for _, msg := range fields {
				body.Message = msg
			}
		}
	}

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err,
		"code", code,
		"op", domain.ErrorOp(err),
		"status", status,
	}
	if status >= 500 {
		logger.ErrorContext(r.Context(), "request failed", attrs...)
		telemetry.Capture(r.Context(), err, map[string]any{
			"path":   r.URL.Path,
			"method": r.Method,
		})
	} else {
		logger.InfoContext(r.Context(), "request rejected", attrs...)
	}

	JSON(w, status, body)
}
