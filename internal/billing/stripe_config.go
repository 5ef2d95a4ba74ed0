package billing

import (
	"errors"
	"net/http"
	"strings"
)

// StripeConfig configures the Stripe provider and the two plans sold at
// checkout.
type StripeConfig struct {
	APIKey         string // sk_test_... or sk_live_...
	WebhookSecret  string // whsec_...
	StarterPriceID string
	ProPriceID     string

	// MaxRetries bounds Stripe's own retries of network failures.
	MaxRetries int
	HTTPClient *http.Client
}

// Validate reports every missing setting at once.
func (c *StripeConfig) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("stripe: STRIPE_SECRET_KEY is required"))
	} else if !strings.HasPrefix(c.APIKey, "sk_") && !strings.HasPrefix(c.APIKey, "rk_") {
		errs = append(errs, errors.New("stripe: secret key must start with sk_ or rk_"))
	}
	if c.WebhookSecret == "" {
		errs = append(errs, errors.New("stripe: STRIPE_WEBHOOK_SECRET is required"))
	}
	if c.StarterPriceID == "" {
		errs = append(errs, errors.New("stripe: STRIPE_STARTER_PRICE_ID is required"))
	}
	if c.ProPriceID == "" {
		errs = append(errs, errors.New("stripe: STRIPE_PRO_PRICE_ID is required"))
	}
	return errors.Join(errs...)
}

func (c *StripeConfig) IsTestMode() bool {
	return strings.Contains(c.APIKey, "_test_")
}

// IsKnownPrice reports whether priceID is one of the two plan prices.
func (c *StripeConfig) IsKnownPrice(priceID string) bool {
	if priceID == "" {
		return false
	}
	return priceID == c.StarterPriceID || priceID == c.ProPriceID
}
