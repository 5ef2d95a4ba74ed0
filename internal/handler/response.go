package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/bizznex/internal/domain"
)

// SuccessBody is the success envelope.
type SuccessBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Success writes {success: true, data} with status 200.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, SuccessBody{Success: true, Data: data})
}

// Created writes {success: true, data} with status 201.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, SuccessBody{Success: true, Data: data})
}

// DecodeJSON decodes the request body into dst. Unknown fields are
// ignored. An empty or malformed body is an EINVALID error.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return domain.Errorf(domain.EINVALID, "", "Request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return domain.Errorf(domain.ETOOLARGE, "", "Request body too large")
		case errors.Is(err, io.EOF):
			return domain.Errorf(domain.EINVALID, "", "Request body is required")
		default:
			return domain.WrapError(err, domain.EINVALID, "", "Invalid JSON body")
		}
	}
	return nil
}

// OptionalID returns the record id from the {id} path value, falling back to
// the ?id= query parameter. ok is false when neither is present.
func OptionalID(r *http.Request) (id uuid.UUID, ok bool, err error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("id"))
	}
	if raw == "" {
		return uuid.Nil, false, nil
	}
	id, err = uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, true, domain.NewValidationError("", "id", "id must be a valid UUID")
	}
	return id, true, nil
}

// RequireID is OptionalID for routes where the id is mandatory.
func RequireID(r *http.Request) (uuid.UUID, error) {
	id, ok, err := OptionalID(r)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, domain.NewValidationError("", "id", "id is required")
	}
	return id, nil
}
