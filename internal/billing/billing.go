package billing

import (
	"context"
	"encoding/json"
)

// Provider defines the interface for the subscription payments provider.
// Implementations can use Stripe or a mock for tests.
type Provider interface {
	// CreateCheckoutSession creates a hosted checkout session for a
	// subscription price. Returns the session ID and redirect URL.
	CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// CreatePortalSession creates a customer portal session where the
	// customer can manage their subscription and payment methods.
	CreatePortalSession(ctx context.Context, params CreatePortalSessionParams) (*PortalSession, error)

	// VerifyWebhook checks the signature header against the configured
	// signing secret and returns the decoded event.
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}

// CreateCheckoutSessionParams contains parameters for starting a checkout.
type CreateCheckoutSessionParams struct {
	// PriceID is the recurring price being purchased.
	PriceID string

	// CustomerEmail prefills the email on the hosted page.
	CustomerEmail string

	// ClientReferenceID links the session to our user when known.
	ClientReferenceID string

	SuccessURL string
	CancelURL  string

	// Metadata is copied onto the session and reported back in
	// checkout.session.completed.
	Metadata map[string]string
}

// CheckoutSession is a created hosted checkout session.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreatePortalSessionParams contains parameters for creating a portal session.
type CreatePortalSessionParams struct {
	CustomerID string
	ReturnURL  string
}

// PortalSession is a created customer portal session.
type PortalSession struct {
	ID  string
	URL string
}

// Event is a verified webhook event. Data holds the raw event object.
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

// CompletedCheckout is the subset of a checkout session the webhook
// handlers need.
type CompletedCheckout struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	CustomerEmail  string
	Metadata       map[string]string
}

// SubscriptionState is the subset of a subscription the webhook handlers
// need.
type SubscriptionState struct {
	ID         string
	CustomerID string
	Status     string
	PriceID    string
}
