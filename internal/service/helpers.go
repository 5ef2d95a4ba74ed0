package service

import (
	"errors"

	"github.com/google/uuid"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository"
)

// fieldError adds a field error to verr, creating the ValidationError on
// first use so it carries op.
func fieldError(verr error, op, field, message string) error {
	var ve *domain.ValidationError
	if verr != nil && errors.As(verr, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return domain.NewValidationError(op, field, message)
}

// notFoundOr maps a missing row to ENOTFOUND and anything else to an
// internal error tagged with op.
func notFoundOr(err error, op, resource string, id uuid.UUID) error {
	if repository.IsNotFound(err) {
		return domain.NotFound(op, resource, id.String())
	}
	return domain.Internal(err, op, "failed to load "+resource)
}
