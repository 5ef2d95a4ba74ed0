package billing

import (
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v83"
)

var (
	ErrInvalidAPIKey           = errors.New("billing: missing or malformed secret key")
	ErrInvalidWebhookSignature = errors.New("billing: webhook signature verification failed")
	ErrMalformedEvent          = errors.New("billing: event payload could not be decoded")
)

// StripeError is a failed Stripe API call. RequestID is Stripe's, for
// looking the call up in the dashboard.
type StripeError struct {
	Message    string
	Code       string // e.g. "resource_missing"
	StatusCode int
	RequestID  string
	Err        error
}

func (e *StripeError) Error() string {
	var b strings.Builder
	b.WriteString("stripe: ")
	b.WriteString(e.Message)
	if e.Code != "" {
		b.WriteString(" (code: " + e.Code + ")")
	}
	return b.String()
}

func (e *StripeError) Unwrap() error { return e.Err }

// Retryable reports failures worth another attempt: throttling, lost
// connections and Stripe-side errors.
func (e *StripeError) Retryable() bool {
	switch {
	case e.Code == "rate_limit", e.Code == "api_connection_error":
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= http.StatusInternalServerError:
		return true
	}
	return false
}

func fromStripe(err error) error {
	se := &StripeError{Message: err.Error(), Err: err}
	var apiErr *stripe.Error
	if errors.As(err, &apiErr) {
		se.Message = apiErr.Msg
		se.Code = string(apiErr.Code)
		se.StatusCode = apiErr.HTTPStatusCode
		se.RequestID = apiErr.RequestID
	}
	return se
}
