package routes

import (
	"net/http"

	"github.com/dukerupert/bizznex/internal/handler/api"
	"github.com/dukerupert/bizznex/internal/handler/billing"
	"github.com/dukerupert/bizznex/internal/handler/webhook"
	"github.com/dukerupert/bizznex/internal/middleware"
)

// APIDeps contains dependencies for the authenticated /api data routes
type APIDeps struct {
	Clients   *api.ClientHandler
	Jobs      *api.JobHandler
	Invoices  *api.InvoiceHandler
	Emails    *api.EmailHandler
	Equipment *api.EquipmentHandler
	Expenses  *api.ExpenseHandler

	// Auth enforces bearer tokens on every data route
	Auth middleware.AuthConfig
}

// BillingDeps contains dependencies for checkout and portal routes
type BillingDeps struct {
	Checkout *billing.CheckoutHandler

	// Limiter guards routes that call out to the payments provider
	Limiter func(http.Handler) http.Handler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	Stripe *webhook.StripeHandler
}

// OpsDeps contains the health and metrics endpoints
type OpsDeps struct {
	Health  http.HandlerFunc
	Metrics http.Handler
}
