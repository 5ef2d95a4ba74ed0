// Package billing serves the subscription checkout and portal endpoints.
package billing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/bizznex/internal/auth"
	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/handler"
	"github.com/dukerupert/bizznex/internal/middleware"
)

// CheckoutHandler handles subscription checkout and portal sessions
type CheckoutHandler struct {
	subscriptions domain.SubscriptionService
	logger        *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(subscriptions domain.SubscriptionService, logger *slog.Logger) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{subscriptions: subscriptions, logger: logger}
}

// CheckoutRequest is the body of POST /api/create-checkout-session.
type CheckoutRequest struct {
	PriceID string `json:"priceId"`
	Email   string `json:"email"`
}

// PortalResponse is the response from POST /api/create-portal-session.
type PortalResponse struct {
	URL string `json:"url"`
}

// failure is the checkout error body. Details carries the provider's own
// message when the provider rejected the call.
type failure struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// HandleCreateCheckoutSession handles POST /api/create-checkout-session.
// The bearer token is optional: without a valid one the purchaser checks
// out as a guest identified by email.
func (h *CheckoutHandler) HandleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.subscriptions.CreateCheckoutSession(r.Context(), domain.CheckoutParams{
		PriceID:     req.PriceID,
		Email:       req.Email,
		BearerToken: auth.BearerToken(r.Header.Get("Authorization")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, session)
}

// HandleCreatePortalSession handles POST /api/create-portal-session.
func (h *CheckoutHandler) HandleCreatePortalSession(w http.ResponseWriter, r *http.Request) {
	url, err := h.subscriptions.CreatePortalSession(r.Context(), auth.BearerToken(r.Header.Get("Authorization")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, PortalResponse{URL: url})
}

func (h *CheckoutHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := domain.HTTPStatus(code)
	body := failure{
		Success: false,
		Message: domain.ErrorMessage(err),
		Code:    code,
		Fields:  domain.GetValidationFields(err),
	}
	if len(body.Fields) == 1 {
		for _, msg := range body.Fields {
			body.Message = msg
		}
	}

	if code == domain.EPAYMENT {
		var de *domain.Error
		if errors.As(err, &de) && de.Err != nil {
			body.Details = de.Err.Error()
		}
	}

	if status >= 500 {
		handler.ErrorResponse(w, r, err)
		return
	}
	middleware.GetLogger(r.Context(), h.logger).InfoContext(r.Context(), "billing request rejected", "code", code, "error", err)
	handler.JSON(w, status, body)
}
