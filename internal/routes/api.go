package routes

import (
	"net/http"

	"github.com/dukerupert/bizznex/internal/middleware"
	"github.com/dukerupert/bizznex/internal/router"
)

// RegisterAPIRoutes registers the JSON data routes. Every route requires a
// verified bearer token unless deps.Auth.Bypass is set.
//
// Single records are addressed either as /api/<resource>?id= or as
// /api/<resource>/{id}.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	// Preflight requests are answered by the CORS middleware
	r.Options("/api/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	authed := r.Group(
		middleware.RequireAuth(deps.Auth),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
	)
	api := authed.Group(middleware.Timeout(middleware.DefaultTimeout))
	docs := authed.Group(middleware.Timeout(middleware.DocumentTimeout))

	// Clients
	api.Get("/api/clients", deps.Clients.List)
	api.Get("/api/clients/{id}", deps.Clients.List)
	api.Post("/api/clients", deps.Clients.Create)
	api.Put("/api/clients", deps.Clients.Update)
	api.Put("/api/clients/{id}", deps.Clients.Update)
	api.Delete("/api/clients", deps.Clients.Delete)
	api.Delete("/api/clients/{id}", deps.Clients.Delete)

	// Jobs
	api.Get("/api/jobs", deps.Jobs.List)
	api.Get("/api/jobs/{id}", deps.Jobs.List)
	api.Post("/api/jobs", deps.Jobs.Create)
	api.Put("/api/jobs", deps.Jobs.Update)
	api.Put("/api/jobs/{id}", deps.Jobs.Update)
	api.Delete("/api/jobs", deps.Jobs.Delete)
	api.Delete("/api/jobs/{id}", deps.Jobs.Delete)

	// Invoices and payments
	api.Get("/api/invoices", deps.Invoices.List)
	api.Get("/api/invoices/{id}", deps.Invoices.Get)
	api.Post("/api/invoices", deps.Invoices.Create)
	api.Delete("/api/invoices", deps.Invoices.Delete)
	api.Delete("/api/invoices/{id}", deps.Invoices.Delete)
	api.Post("/api/update-invoice-status", deps.Invoices.RecordPayment)
	docs.Post("/api/generate-invoice-pdf", deps.Invoices.GenerateDocument)

	// Email
	api.Post("/api/send-email", deps.Emails.Send)
	api.Get("/api/emails", deps.Emails.History)
	api.Delete("/api/emails", deps.Emails.Delete)
	api.Delete("/api/emails/{id}", deps.Emails.Delete)

	// Equipment
	api.Get("/api/equipment", deps.Equipment.List)
	api.Get("/api/equipment/{id}", deps.Equipment.List)
	api.Post("/api/equipment", deps.Equipment.Create)
	api.Put("/api/equipment", deps.Equipment.Update)
	api.Put("/api/equipment/{id}", deps.Equipment.Update)
	api.Delete("/api/equipment", deps.Equipment.Delete)
	api.Delete("/api/equipment/{id}", deps.Equipment.Delete)
	api.Post("/api/equipment/{id}/maintenance", deps.Equipment.AddMaintenance)

	// Expenses
	api.Get("/api/expenses", deps.Expenses.List)
	api.Get("/api/expenses/summary", deps.Expenses.Summary)
	api.Get("/api/expenses/{id}", deps.Expenses.List)
	api.Post("/api/expenses", deps.Expenses.Create)
	api.Put("/api/expenses", deps.Expenses.Update)
	api.Put("/api/expenses/{id}", deps.Expenses.Update)
	api.Delete("/api/expenses", deps.Expenses.Delete)
	api.Delete("/api/expenses/{id}", deps.Expenses.Delete)
}

// RegisterBillingRoutes registers checkout and portal session routes. The
// bearer token is read by the handlers themselves: checkout accepts guests.
func RegisterBillingRoutes(r *router.Router, deps BillingDeps) {
	mw := []router.Middleware{
		middleware.MaxBodySize(middleware.SmallMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
	}
	if deps.Limiter != nil {
		mw = append(mw, deps.Limiter)
	}
	billing := r.Group(mw...)

	billing.Post("/api/create-checkout-session", deps.Checkout.HandleCreateCheckoutSession)
	billing.Post("/api/create-portal-session", deps.Checkout.HandleCreatePortalSession)
}

// RegisterOpsRoutes registers /health and /metrics.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", deps.Health)
	if deps.Metrics != nil {
		r.Handle(http.MethodGet, "/metrics", deps.Metrics)
	}
}
