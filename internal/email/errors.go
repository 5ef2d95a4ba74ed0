package email

import (
	"errors"
	"fmt"

	"github.com/dukerupert/bizznex/internal/domain"
)

// EmailError is returned by senders and the template renderer. For provider
// failures Raw holds the provider's response text, which is what gets
// recorded on the invoice's email status.
type EmailError struct {
	Code       string // a domain error code
	Message    string
	Provider   string
	StatusCode int
	Raw        string
	Err        error
}

func (e *EmailError) Error() string {
	switch {
	case e.Raw != "":
		return e.Message + ": " + e.Raw
	case e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *EmailError) Unwrap() error { return e.Err }

func (e *EmailError) ErrorCode() string { return e.Code }

var (
	ErrInvalidFromAddress = &EmailError{Code: domain.EINVALID, Message: "invalid from address"}
	ErrInvalidToAddress   = &EmailError{Code: domain.EINVALID, Message: "invalid recipient address"}
)

func ErrTemplateNotFound(name string) error {
	return &EmailError{Code: domain.ENOTFOUND, Message: "email template not found: " + name}
}

// ProviderError wraps a rejected or failed send. status is 0 when no HTTP
// exchange took place.
func ProviderError(provider string, status int, raw string, err error) *EmailError {
	return &EmailError{
		Code:       domain.EINTERNAL,
		Message:    fmt.Sprintf("%s send failed", provider),
		Provider:   provider,
		StatusCode: status,
		Raw:        raw,
		Err:        err,
	}
}

func AsEmailError(err error) (*EmailError, bool) {
	var ee *EmailError
	ok := errors.As(err, &ee)
	return ee, ok
}
