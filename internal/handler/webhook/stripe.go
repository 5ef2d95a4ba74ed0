// Package webhook receives signed callbacks from external providers.
package webhook

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/bizznex/internal/billing"
	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/handler"
	"github.com/dukerupert/bizznex/internal/middleware"
	"github.com/dukerupert/bizznex/internal/telemetry"
)

// StripeHandler handles Stripe webhook events
type StripeHandler struct {
	provider      billing.Provider
	subscriptions domain.SubscriptionService
	logger        *slog.Logger
}

// NewStripeHandler creates a new Stripe webhook handler
func NewStripeHandler(provider billing.Provider, subscriptions domain.SubscriptionService, logger *slog.Logger) *StripeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeHandler{
		provider:      provider,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type receivedResponse struct {
	Received bool `json:"received"`
}

// HandleWebhook processes incoming Stripe webhook events.
//
// A bad signature is answered with 400 and nothing is changed. A handler
// failure is answered with 500 so Stripe retries the delivery.
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:3000/api/webhooks/stripe
//	stripe trigger checkout.session.completed
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx := r.Context()
	logger := middleware.GetLogger(ctx, h.logger)

	if r.Method != http.MethodPost {
		handler.JSON(w, http.StatusBadRequest, messageResponse{Message: "Method not allowed"})
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.WarnContext(ctx, "failed to read webhook body", "error", err)
		handler.JSON(w, http.StatusBadRequest, messageResponse{Message: "Error reading request body"})
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		telemetry.Business.Webhook("stripe", "unknown", started, "missing_signature")
		handler.JSON(w, http.StatusBadRequest, messageResponse{Message: "Missing signature"})
		return
	}

	event, err := h.provider.VerifyWebhook(payload, signature)
	if err != nil {
		logger.WarnContext(ctx, "webhook signature verification failed", "error", err, "payload_bytes", len(payload))
		telemetry.Business.Webhook("stripe", "unknown", started, "signature")
		handler.JSON(w, http.StatusBadRequest, messageResponse{Message: "Webhook signature verification failed"})
		return
	}

	logger = logger.With("event_id", event.ID, "event_type", event.Type)
	logger.InfoContext(ctx, "webhook received")

	err = h.subscriptions.HandleWebhookEvent(ctx, domain.WebhookEvent{
		ID:   event.ID,
		Type: event.Type,
		Data: event.Data,
	})
	if err != nil {
		logger.ErrorContext(ctx, "webhook handler failed", "error", err, "code", domain.ErrorCode(err))
		telemetry.Business.Webhook("stripe", event.Type, started, domain.ErrorCode(err))
		telemetry.Capture(ctx, err, map[string]any{
			"event_id":   event.ID,
			"event_type": event.Type,
		})
		handler.JSON(w, http.StatusInternalServerError, messageResponse{Message: webhookErrorMessage(err)})
		return
	}

	telemetry.Business.Webhook("stripe", event.Type, started, "")
	handler.JSON(w, http.StatusOK, receivedResponse{Received: true})
}

// webhookErrorMessage returns the message sent back to Stripe. It shows up
// in the dashboard's delivery log, so client-facing codes keep their text.
func webhookErrorMessage(err error) string {
	if fields := domain.GetValidationFields(err); len(fields) > 0 {
		for field, msg := range fields {
			return field + ": " + msg
		}
	}
	return domain.ErrorMessage(err)
}
