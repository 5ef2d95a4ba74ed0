package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bizznex/internal/auth"
	"github.com/dukerupert/bizznex/internal/billing"
	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/events"
	"github.com/dukerupert/bizznex/internal/repository"
	"github.com/dukerupert/bizznex/internal/repository/memstore"
)

const (
	testJWTSecret  = "test-secret"
	starterPriceID = "price_starter"
	proPriceID     = "price_pro"
)

type subscriptionFixture struct {
	store    *memstore.Store
	provider *billing.MockProvider
	events   *events.Recorder
	svc      SubscriptionService
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()
	store := memstore.New()
	provider := billing.NewMockProvider()
	rec := &events.Recorder{}

	svc := NewSubscriptionService(
		store,
		provider,
		auth.NewJWTVerifier(testJWTSecret),
		billing.StripeConfig{StarterPriceID: starterPriceID, ProPriceID: proPriceID},
		"https://bizznex.test/",
		rec,
		testLogger(),
	)
	return &subscriptionFixture{store: store, provider: provider, events: rec, svc: svc}
}

func issueToken(t *testing.T, userID, email string) string {
	t.Helper()
	token, err := auth.IssueToken(testJWTSecret, userID, email, time.Hour)
	require.NoError(t, err)
	return token
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// ============================================================================
// Checkout
// ============================================================================

func TestCreateCheckoutSession(t *testing.T) {
	tests := []struct {
		name      string
		params    domain.CheckoutParams
		wantField string
		wantEmail string
		wantUser  string
	}{
		{
			name:      "unknown price",
			params:    domain.CheckoutParams{PriceID: "unknown", Email: "a@b.test"},
			wantField: "priceId",
		},
		{
			name:      "guest without email",
			params:    domain.CheckoutParams{PriceID: starterPriceID},
			wantField: "email",
		},
		{
			name:      "guest with email",
			params:    domain.CheckoutParams{PriceID: starterPriceID, Email: "guest@b.test"},
			wantEmail: "guest@b.test",
		},
		{
			name:      "invalid token falls back to body email",
			params:    domain.CheckoutParams{PriceID: proPriceID, Email: "guest@b.test", BearerToken: "garbage"},
			wantEmail: "guest@b.test",
		},
		{
			name:      "invalid token and no email",
			params:    domain.CheckoutParams{PriceID: proPriceID, BearerToken: "garbage"},
			wantField: "email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubscriptionFixture(t)

			session, err := f.svc.CreateCheckoutSession(context.Background(), tt.params)
			if tt.wantField != "" {
				require.Error(t, err)
				assert.Contains(t, domain.GetValidationFields(err), tt.wantField)
				assert.Empty(t, f.provider.CheckoutSessions, "no session may be created")
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, session.SessionID)
			require.Len(t, f.provider.CheckoutSessions, 1)
			req := f.provider.CheckoutSessions[0]
			assert.Equal(t, tt.wantEmail, req.CustomerEmail)
			assert.Equal(t, tt.params.PriceID, req.Metadata["priceId"])
			assert.NotContains(t, req.Metadata, "userId")
		})
	}
}

func TestCreateCheckoutSession_AuthenticatedUser(t *testing.T) {
	f := newSubscriptionFixture(t)
	token := issueToken(t, "user-1", "owner@acme.test")

	_, err := f.svc.CreateCheckoutSession(context.Background(), domain.CheckoutParams{
		PriceID:     proPriceID,
		Email:       "ignored@acme.test",
		BearerToken: token,
	})
	require.NoError(t, err)

	require.Len(t, f.provider.CheckoutSessions, 1)
	req := f.provider.CheckoutSessions[0]
	assert.Equal(t, "owner@acme.test", req.CustomerEmail)
	assert.Equal(t, "user-1", req.ClientReferenceID)
	want := map[string]string{"priceId": proPriceID, "userId": "user-1"}
	if diff := cmp.Diff(want, req.Metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "https://bizznex.test/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "https://bizznex.test/pricing", req.CancelURL)
}

func TestCreateCheckoutSession_ProviderFailure(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.provider.CreateCheckoutSessionFunc = func(ctx context.Context, params billing.CreateCheckoutSessionParams) (*billing.CheckoutSession, error) {
		return nil, &billing.StripeError{Message: "card declined", StatusCode: 402}
	}

	_, err := f.svc.CreateCheckoutSession(context.Background(), domain.CheckoutParams{PriceID: starterPriceID, Email: "a@b.test"})
	require.Error(t, err)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))

	var stripeErr *billing.StripeError
	assert.True(t, errors.As(err, &stripeErr))
}

func TestCreateCheckoutSession_RetryableProviderFailure(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.provider.CreateCheckoutSessionFunc = func(ctx context.Context, params billing.CreateCheckoutSessionParams) (*billing.CheckoutSession, error) {
		return nil, &billing.StripeError{Message: "Stripe is unavailable", StatusCode: 503}
	}

	_, err := f.svc.CreateCheckoutSession(context.Background(), domain.CheckoutParams{PriceID: starterPriceID, Email: "a@b.test"})
	require.Error(t, err)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
	assert.Contains(t, domain.ErrorMessage(err), "try again")
}

// ============================================================================
// Portal
// ============================================================================

func TestCreatePortalSession(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	customer := "cus_123"
	f.store.PutProfile(repository.Profile{ID: "user-1", Email: "owner@acme.test", StripeCustomerID: &customer})
	f.store.PutProfile(repository.Profile{ID: "user-2", Email: "free@acme.test"})

	url, err := f.svc.CreatePortalSession(ctx, issueToken(t, "user-1", "owner@acme.test"))
	require.NoError(t, err)
	assert.Contains(t, url, "billing.stripe.test")
	assert.Contains(t, f.provider.Calls(), "CreatePortalSession(cus_123)")

	_, err = f.svc.CreatePortalSession(ctx, "")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	_, err = f.svc.CreatePortalSession(ctx, "garbage")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	_, err = f.svc.CreatePortalSession(ctx, issueToken(t, "user-2", "free@acme.test"))
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	_, err = f.svc.CreatePortalSession(ctx, issueToken(t, "nobody", ""))
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

// ============================================================================
// Webhooks
// ============================================================================

func checkoutCompleted(t *testing.T, userID, priceID string) domain.WebhookEvent {
	metadata := map[string]string{"priceId": priceID}
	if userID != "" {
		metadata["userId"] = userID
	}
	return domain.WebhookEvent{
		ID:   "evt_checkout",
		Type: domain.EventCheckoutSessionCompleted,
		Data: rawJSON(t, map[string]any{
			"id":               "cs_1",
			"object":           "checkout.session",
			"customer":         "cus_1",
			"subscription":     "sub_1",
			"customer_details": map[string]any{"email": "owner@acme.test"},
			"metadata":         metadata,
		}),
	}
}

func subscriptionEvent(t *testing.T, eventType, status, priceID string) domain.WebhookEvent {
	obj := map[string]any{
		"id":       "sub_1",
		"object":   "subscription",
		"customer": "cus_1",
		"status":   status,
	}
	if priceID != "" {
		obj["items"] = map[string]any{
			"object": "list",
			"data":   []any{map[string]any{"id": "si_1", "price": map[string]any{"id": priceID}}},
		}
	}
	return domain.WebhookEvent{ID: "evt_" + status, Type: eventType, Data: rawJSON(t, obj)}
}

func TestHandleWebhookEvent_CheckoutCompletedIsIdempotent(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	event := checkoutCompleted(t, "user-1", proPriceID)

	require.NoError(t, f.svc.HandleWebhookEvent(ctx, event))
	once, err := f.store.GetProfile(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleWebhookEvent(ctx, event))
	twice, err := f.store.GetProfile(ctx, "user-1")
	require.NoError(t, err)

	ignoreTimes := cmp.FilterPath(func(p cmp.Path) bool {
		name := p.Last().String()
		return name == ".UpdatedAt" || name == ".CreatedAt"
	}, cmp.Ignore())
	if diff := cmp.Diff(once, twice, ignoreTimes); diff != "" {
		t.Errorf("replay changed the profile (-once +twice):\n%s", diff)
	}

	assert.Equal(t, "owner@acme.test", twice.Email)
	require.NotNil(t, twice.Plan)
	assert.Equal(t, domain.PlanPro, *twice.Plan)
	require.NotNil(t, twice.SubscriptionStatus)
	assert.Equal(t, domain.SubscriptionStatusActive, *twice.SubscriptionStatus)
	require.NotNil(t, twice.StripeCustomerID)
	assert.Equal(t, "cus_1", *twice.StripeCustomerID)
	require.NotNil(t, twice.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *twice.StripeSubscriptionID)

	assert.Equal(t, []string{events.SubjectSubscriptionChanged, events.SubjectSubscriptionChanged}, f.events.Subjects())
}

func TestHandleWebhookEvent_CheckoutCompletedStarterPlan(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleWebhookEvent(ctx, checkoutCompleted(t, "user-1", starterPriceID)))
	p, err := f.store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, p.Plan)
	assert.Equal(t, domain.PlanStarter, *p.Plan)
}

func TestHandleWebhookEvent_CheckoutWithoutUser(t *testing.T) {
	f := newSubscriptionFixture(t)

	err := f.svc.HandleWebhookEvent(context.Background(), checkoutCompleted(t, "", proPriceID))
	assert.ErrorIs(t, err, ErrMissingUserID)
	assert.Empty(t, f.events.Subjects())
}

func TestHandleWebhookEvent_SubscriptionLifecycle(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.HandleWebhookEvent(ctx, checkoutCompleted(t, "user-1", starterPriceID)))

	require.NoError(t, f.svc.HandleWebhookEvent(ctx, subscriptionEvent(t, domain.EventCustomerSubscriptionUpdated, "past_due", proPriceID)))
	p, err := f.store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "past_due", *p.SubscriptionStatus)
	assert.Equal(t, domain.PlanPro, *p.Plan)

	// No price in the payload keeps the current plan.
	require.NoError(t, f.svc.HandleWebhookEvent(ctx, subscriptionEvent(t, domain.EventCustomerSubscriptionUpdated, "active", "")))
	p, err = f.store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "active", *p.SubscriptionStatus)
	assert.Equal(t, domain.PlanPro, *p.Plan)

	require.NoError(t, f.svc.HandleWebhookEvent(ctx, subscriptionEvent(t, domain.EventCustomerSubscriptionDeleted, "canceled", "")))
	p, err = f.store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCanceled, *p.SubscriptionStatus)
	assert.Nil(t, p.Plan)
}

func TestHandleWebhookEvent_UnknownSubscription(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	err := f.svc.HandleWebhookEvent(ctx, subscriptionEvent(t, domain.EventCustomerSubscriptionUpdated, "active", proPriceID))
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	err = f.svc.HandleWebhookEvent(ctx, subscriptionEvent(t, domain.EventCustomerSubscriptionDeleted, "canceled", ""))
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestHandleWebhookEvent_IgnoresUnknownTypes(t *testing.T) {
	f := newSubscriptionFixture(t)

	err := f.svc.HandleWebhookEvent(context.Background(), domain.WebhookEvent{
		ID:   "evt_x",
		Type: "invoice.finalized",
		Data: json.RawMessage(`{}`),
	})
	assert.NoError(t, err)
	assert.Empty(t, f.events.Subjects())
}

func TestHandleWebhookEvent_StoreFailure(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.store.FailOn["UpsertProfileSubscription"] = errors.New("connection refused")

	err := f.svc.HandleWebhookEvent(context.Background(), checkoutCompleted(t, "user-1", proPriceID))
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}
