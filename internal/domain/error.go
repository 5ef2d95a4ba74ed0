package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes. The HTTP layer maps each to one status.
const (
	EINVALID      = "invalid"          // 400
	EUNAUTHORIZED = "unauthorized"     // 401
	EPAYMENT      = "payment_required" // 402
	EFORBIDDEN    = "forbidden"        // 403
	ENOTFOUND     = "not_found"        // 404
	ECONFLICT     = "conflict"         // 409
	EGONE         = "gone"             // 410
	ETOOLARGE     = "too_large"        // 413
	ERATELIMIT    = "rate_limit"       // 429
	EINTERNAL     = "internal"         // 500
	ENOTIMPL      = "not_implemented"  // 501
)

// InternalMessage replaces the message of any error not safe to show.
const InternalMessage = "An internal error occurred. Please try again later."

// Error is an application error. Message is shown to callers unless Code is
// EINTERNAL; Op and Err are for logs only.
type Error struct {
	Code    string
	Message string
	Op      string // e.g. "invoice.create"
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	prefix := ""
	if e.Op != "" {
		prefix = e.Op + ": "
	}
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			return prefix + field + ": " + msg
		}
	}
	return fmt.Sprintf("%svalidation failed for %d fields", prefix, len(e.Fields))
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func asValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// ErrorCode returns the code carried by err: EINVALID for validation
// failures, EINTERNAL for anything unrecognised, "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok {
		return e.Code
	}
	if _, ok := asValidation(err); ok {
		return EINVALID
	}
	return EINTERNAL
}

// ErrorMessage returns the caller-safe message for err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok && e.Code != EINTERNAL {
		return e.Message
	}
	if _, ok := asValidation(err); ok {
		return "Validation failed"
	}
	return InternalMessage
}

// ErrorOp returns the operation recorded on err, for logging.
func ErrorOp(err error) string {
	if e, ok := asError(err); ok {
		return e.Op
	}
	if ve, ok := asValidation(err); ok {
		return ve.Op
	}
	return ""
}

// GetValidationFields returns the field messages of a validation failure,
// or nil.
func GetValidationFields(err error) map[string]string {
	if ve, ok := asValidation(err); ok {
		return ve.Fields
	}
	return nil
}

// Errorf builds an error with a formatted caller-safe message.
func Errorf(code, op, format string, args ...any) error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches code, op and message to err. A nil err stays nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// NewValidationError reports a single rejected field.
func NewValidationError(op, field, message string) error {
	return &ValidationError{Op: op, Fields: map[string]string{field: message}}
}

func NotFound(op, resource, identifier string) error {
	return Errorf(ENOTFOUND, op, "%s not found: %s", resource, identifier)
}

func Unauthorized(op, message string) error {
	return &Error{Code: EUNAUTHORIZED, Op: op, Message: message}
}

func Forbidden(op, message string) error {
	return &Error{Code: EFORBIDDEN, Op: op, Message: message}
}

func Invalid(op, message string) error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

func Conflict(op, message string) error {
	return &Error{Code: ECONFLICT, Op: op, Message: message}
}

// Internal wraps err; callers only ever see InternalMessage.
func Internal(err error, op, message string) error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}

// InvalidPaymentAmount reports a payment outside (0, balance].
func InvalidPaymentAmount(op, balance string) error {
	return NewValidationError(op, "amount", "amount must be greater than 0 and at most "+balance)
}

// InvalidPriceID reports a checkout request for an unknown plan price.
func InvalidPriceID(op string) error {
	return NewValidationError(op, "priceId", "invalid price id")
}

// MissingEmail reports a checkout with no resolvable purchaser email.
func MissingEmail(op string) error {
	return NewValidationError(op, "email", "email is required")
}

// ProfileNotFound reports a webhook event that matches no profile.
func ProfileNotFound(op, key string) error {
	return NotFound(op, "profile", key)
}

// Persistence wraps a failed store write.
func Persistence(err error, op, message string) error {
	return Internal(err, op, message)
}
