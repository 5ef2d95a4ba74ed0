package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v83"
	portalsession "github.com/stripe/stripe-go/v83/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/webhook"
)

// StripeProvider implements Provider using Stripe.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider creates a new Stripe billing provider.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrInvalidAPIKey
	}

	stripe.Key = cfg.APIKey
	if cfg.MaxRetries > 0 || cfg.HTTPClient != nil {
		backend := &stripe.BackendConfig{HTTPClient: cfg.HTTPClient}
		if cfg.MaxRetries > 0 {
			backend.MaxNetworkRetries = stripe.Int64(int64(cfg.MaxRetries))
		}
		stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, backend))
	}

	return &StripeProvider{webhookSecret: cfg.WebhookSecret}, nil
}

// CreateCheckoutSession creates a subscription-mode Checkout Session.
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: params.Metadata,
		},
	}
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	if params.ClientReferenceID != "" {
		sessionParams.ClientReferenceID = stripe.String(params.ClientReferenceID)
	}
	for k, v := range params.Metadata {
		sessionParams.AddMetadata(k, v)
	}

	session, err := checkoutsession.New(sessionParams)
	if err != nil {
		return nil, fromStripe(err)
	}

	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// CreatePortalSession creates a Stripe Customer Portal session.
func (s *StripeProvider) CreatePortalSession(ctx context.Context, params CreatePortalSessionParams) (*PortalSession, error) {
	portalParams := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(params.CustomerID),
		ReturnURL: stripe.String(params.ReturnURL),
	}

	session, err := portalsession.New(portalParams)
	if err != nil {
		return nil, fromStripe(err)
	}

	return &PortalSession{ID: session.ID, URL: session.URL}, nil
}

// VerifyWebhook verifies a Stripe-Signature header and decodes the event.
// API version mismatches are tolerated; only the fields read by
// ParseCheckoutSession and ParseSubscription matter.
func (s *StripeProvider) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}

	e := &Event{ID: event.ID, Type: string(event.Type)}
	if event.Data != nil {
		e.Data = event.Data.Raw
	}
	return e, nil
}

// ParseCheckoutSession decodes a checkout.session.* event object.
func ParseCheckoutSession(data json.RawMessage) (*CompletedCheckout, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	out := &CompletedCheckout{
		ID:       session.ID,
		Metadata: session.Metadata,
	}
	if session.Customer != nil {
		out.CustomerID = session.Customer.ID
	}
	if session.Subscription != nil {
		out.SubscriptionID = session.Subscription.ID
	}
	if session.CustomerDetails != nil {
		out.CustomerEmail = session.CustomerDetails.Email
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = session.CustomerEmail
	}
	return out, nil
}

// ParseSubscription decodes a customer.subscription.* event object.
func ParseSubscription(data json.RawMessage) (*SubscriptionState, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	out := &SubscriptionState{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	return out, nil
}
