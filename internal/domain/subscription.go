package domain

import (
	"context"
	"encoding/json"
)

// Subscription plans.
const (
	PlanStarter = "starter"
	PlanPro     = "pro"
)

// Subscription statuses written by the webhook handlers. Updates from
// the payments provider may carry any of its own status strings.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
)

// Webhook event types handled by SubscriptionService.
const (
	EventCheckoutSessionCompleted    = "checkout.session.completed"
	EventCustomerSubscriptionUpdated = "customer.subscription.updated"
	EventCustomerSubscriptionDeleted = "customer.subscription.deleted"
)

// SubscriptionService sells the Starter and Pro plans and keeps profile
// subscription state in sync with the payments provider.
type SubscriptionService interface {
	// CreateCheckoutSession starts a hosted checkout for priceID. The
	// purchaser is identified by bearerToken when it verifies, otherwise
	// by email.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)

	// CreatePortalSession returns a billing portal URL for the token's user.
	CreatePortalSession(ctx context.Context, bearerToken string) (string, error)

	// HandleWebhookEvent applies a verified provider event. Unknown event
	// types are ignored.
	HandleWebhookEvent(ctx context.Context, event WebhookEvent) error
}

// CheckoutParams contains parameters for starting a checkout.
type CheckoutParams struct {
	PriceID     string
	Email       string
	BearerToken string
}

// CheckoutSession is the result of a successful checkout request.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

// WebhookEvent is a signature-verified provider event.
type WebhookEvent struct {
	ID   string
	Type string
	Data json.RawMessage
}

// PlanForPrice maps a price id to a plan: the Pro price is pro and
// anything else is starter.
func PlanForPrice(priceID, proPriceID string) string {
	if priceID != "" && priceID == proPriceID {
		return PlanPro
	}
	return PlanStarter
}
