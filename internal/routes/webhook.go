package routes

import (
	"github.com/dukerupert/bizznex/internal/middleware"
	"github.com/dukerupert/bizznex/internal/router"
)

// RegisterWebhookRoutes mounts the Stripe webhook. It carries no bearer
// auth: the handler verifies the Stripe-Signature header against the raw
// body instead.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	stripe := r.Group(
		middleware.MaxBodySize(middleware.WebhookMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
	)
	stripe.Post("/api/webhooks/stripe", deps.Stripe.HandleWebhook)
}
