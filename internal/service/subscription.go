package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dukerupert/bizznex/internal/auth"
	"github.com/dukerupert/bizznex/internal/billing"
	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/events"
	"github.com/dukerupert/bizznex/internal/repository"
	"github.com/dukerupert/bizznex/internal/telemetry"
)

// SubscriptionService is re-exported from domain for handler convenience.
type SubscriptionService = domain.SubscriptionService

// SubscriptionEvent is published on events.SubjectSubscriptionChanged.
type SubscriptionEvent struct {
	ProfileID      string  `json:"profile_id"`
	SubscriptionID string  `json:"subscription_id"`
	Status         string  `json:"status"`
	Plan           *string `json:"plan"`
	EventID        string  `json:"event_id"`
}

type subscriptionService struct {
	store     repository.Querier
	provider  billing.Provider
	verifier  auth.Verifier
	config    billing.StripeConfig
	baseURL   string
	publisher events.Publisher
	logger    *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService instance.
// baseURL is the public site root used for checkout and portal redirects.
func NewSubscriptionService(
	store repository.Querier,
	provider billing.Provider,
	verifier auth.Verifier,
	config billing.StripeConfig,
	baseURL string,
	publisher events.Publisher,
	logger *slog.Logger,
) SubscriptionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &subscriptionService{
		store:     store,
		provider:  provider,
		verifier:  verifier,
		config:    config,
		baseURL:   strings.TrimRight(baseURL, "/"),
		publisher: publisher,
		logger:    logger,
	}
}

// CreateCheckoutSession starts a subscription checkout. A token that fails
// verification does not reject the request; the purchaser continues as a
// guest and must supply an email.
func (s *subscriptionService) CreateCheckoutSession(ctx context.Context, params domain.CheckoutParams) (*domain.CheckoutSession, error) {
	const op = "subscription.checkout"

	priceID := strings.TrimSpace(params.PriceID)
	if !s.config.IsKnownPrice(priceID) {
		return nil, domain.InvalidPriceID(op)
	}

	var user *domain.User
	if params.BearerToken != "" {
		u, err := s.verifier.Verify(params.BearerToken)
		if err != nil {
			s.logger.DebugContext(ctx, "checkout token rejected, continuing as guest", "error", err)
		} else {
			user = u
		}
	}

	email := strings.TrimSpace(params.Email)
	if user != nil && user.Email != "" {
		email = user.Email
	}
	if email == "" {
		return nil, domain.MissingEmail(op)
	}

	metadata := map[string]string{"priceId": priceID}
	req := billing.CreateCheckoutSessionParams{
		PriceID:       priceID,
		CustomerEmail: email,
		SuccessURL:    s.baseURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.baseURL + "/pricing",
		Metadata:      metadata,
	}
	if user != nil {
		metadata["userId"] = user.ID
		req.ClientReferenceID = user.ID
	}

	done := telemetry.Business.ObserveStripe("checkout_session")
	session, err := s.provider.CreateCheckoutSession(ctx, req)
	done()
	if err != nil {
		s.logger.ErrorContext(ctx, "checkout session failed", "price_id", priceID, "error", err, "retryable", retryable(err))
		return nil, providerFailure(err, op, "Failed to create checkout session")
	}

	plan := domain.PlanForPrice(priceID, s.config.ProPriceID)
	telemetry.Business.CheckoutSessionCreated(plan)
	s.logger.InfoContext(ctx, "checkout session created",
		"session_id", session.ID,
		"plan", plan,
		"guest", user == nil,
	)

	return &domain.CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

func (s *subscriptionService) CreatePortalSession(ctx context.Context, bearerToken string) (string, error) {
	const op = "subscription.portal"

	if bearerToken == "" {
		return "", ErrMissingToken
	}
	user, err := s.verifier.Verify(bearerToken)
	if err != nil {
		return "", ErrInvalidToken
	}

	profile, err := s.store.GetProfile(ctx, user.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", ErrNoBillingCustomer
		}
		return "", domain.Internal(err, op, "failed to load profile")
	}
	if profile.StripeCustomerID == nil || *profile.StripeCustomerID == "" {
		return "", ErrNoBillingCustomer
	}

	done := telemetry.Business.ObserveStripe("portal_session")
	portal, err := s.provider.CreatePortalSession(ctx, billing.CreatePortalSessionParams{
		CustomerID: *profile.StripeCustomerID,
		ReturnURL:  s.baseURL + "/account",
	})
	done()
	if err != nil {
		s.logger.ErrorContext(ctx, "portal session failed", "error", err, "retryable", retryable(err))
		return "", providerFailure(err, op, "Failed to create portal session")
	}
	return portal.URL, nil
}

func retryable(err error) bool {
	var se *billing.StripeError
	return errors.As(err, &se) && se.Retryable()
}

// providerFailure tells the caller to try again when Stripe itself was at
// fault.
func providerFailure(err error, op, message string) error {
	if retryable(err) {
		message += "; please try again shortly"
	}
	return domain.WrapError(err, domain.EPAYMENT, op, message)
}

// HandleWebhookEvent applies a verified event. Every branch writes fixed
// values, so replaying an event leaves the profile unchanged.
func (s *subscriptionService) HandleWebhookEvent(ctx context.Context, event domain.WebhookEvent) error {
	switch event.Type {
	case domain.EventCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case domain.EventCustomerSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, event)
	case domain.EventCustomerSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	default:
		s.logger.DebugContext(ctx, "ignoring webhook event", "event_id", event.ID, "type", event.Type)
		return nil
	}
}

func (s *subscriptionService) handleCheckoutCompleted(ctx context.Context, event domain.WebhookEvent) error {
	const op = "subscription.checkout_completed"

	session, err := billing.ParseCheckoutSession(event.Data)
	if err != nil {
		return domain.WrapError(err, domain.EINVALID, op, "Malformed checkout session")
	}

	userID := session.Metadata["userId"]
	if userID == "" {
		return ErrMissingUserID
	}

	status := domain.SubscriptionStatusActive
	plan := domain.PlanForPrice(session.Metadata["priceId"], s.config.ProPriceID)

	params := repository.UpsertProfileSubscriptionParams{
		ID:                 userID,
		Email:              session.CustomerEmail,
		SubscriptionStatus: &status,
		Plan:               &plan,
	}
	if session.CustomerID != "" {
		params.StripeCustomerID = &session.CustomerID
	}
	if session.SubscriptionID != "" {
		params.StripeSubscriptionID = &session.SubscriptionID
	}

	profile, err := s.store.UpsertProfileSubscription(ctx, params)
	if err != nil {
		return domain.Persistence(err, op, "failed to save subscription")
	}

	s.changed(ctx, event, profile)
	return nil
}

func (s *subscriptionService) handleSubscriptionUpdated(ctx context.Context, event domain.WebhookEvent) error {
	const op = "subscription.updated"

	sub, err := billing.ParseSubscription(event.Data)
	if err != nil {
		return domain.WrapError(err, domain.EINVALID, op, "Malformed subscription")
	}

	current, err := s.store.GetProfileBySubscriptionID(ctx, sub.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return domain.ProfileNotFound(op, sub.ID)
		}
		return domain.Internal(err, op, "failed to load profile")
	}

	plan := current.Plan
	if sub.PriceID != "" {
		p := domain.PlanForPrice(sub.PriceID, s.config.ProPriceID)
		plan = &p
	}
	status := sub.Status

	profile, err := s.store.UpdateProfileSubscriptionState(ctx, repository.UpdateProfileSubscriptionStateParams{
		StripeSubscriptionID: sub.ID,
		SubscriptionStatus:   &status,
		Plan:                 plan,
	})
	if err != nil {
		return s.stateError(err, op, sub.ID)
	}

	s.changed(ctx, event, profile)
	return nil
}

func (s *subscriptionService) handleSubscriptionDeleted(ctx context.Context, event domain.WebhookEvent) error {
	const op = "subscription.deleted"

	sub, err := billing.ParseSubscription(event.Data)
	if err != nil {
		return domain.WrapError(err, domain.EINVALID, op, "Malformed subscription")
	}

	status := domain.SubscriptionStatusCanceled
	profile, err := s.store.UpdateProfileSubscriptionState(ctx, repository.UpdateProfileSubscriptionStateParams{
		StripeSubscriptionID: sub.ID,
		SubscriptionStatus:   &status,
		Plan:                 nil,
	})
	if err != nil {
		return s.stateError(err, op, sub.ID)
	}

	s.changed(ctx, event, profile)
	return nil
}

func (s *subscriptionService) stateError(err error, op, subscriptionID string) error {
	if repository.IsNotFound(err) {
		return domain.ProfileNotFound(op, subscriptionID)
	}
	return domain.Persistence(err, op, "failed to update subscription")
}

func (s *subscriptionService) changed(ctx context.Context, event domain.WebhookEvent, p repository.Profile) {
	status := ""
	if p.SubscriptionStatus != nil {
		status = *p.SubscriptionStatus
	}
	subID := ""
	if p.StripeSubscriptionID != nil {
		subID = *p.StripeSubscriptionID
	}

	telemetry.Business.SubscriptionChanged(status)
	s.logger.InfoContext(ctx, "subscription updated",
		"event_id", event.ID,
		"event_type", event.Type,
		"profile_id", p.ID,
		"status", status,
	)

	err := s.publisher.Publish(ctx, events.SubjectSubscriptionChanged, SubscriptionEvent{
		ProfileID:      p.ID,
		SubscriptionID: subID,
		Status:         status,
		Plan:           p.Plan,
		EventID:        event.ID,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "failed to publish event", "subject", events.SubjectSubscriptionChanged, "error", err)
	}
}
