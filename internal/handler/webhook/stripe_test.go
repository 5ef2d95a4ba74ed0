package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bizznex/internal/auth"
	"github.com/dukerupert/bizznex/internal/billing"
	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/events"
	"github.com/dukerupert/bizznex/internal/repository"
	"github.com/dukerupert/bizznex/internal/repository/memstore"
	"github.com/dukerupert/bizznex/internal/service"
)

const proPriceID = "price_pro"

type webhookFixture struct {
	store    *memstore.Store
	provider *billing.MockProvider
	events   *events.Recorder
	handler  *StripeHandler
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	provider := billing.NewMockProvider()
	rec := &events.Recorder{}

	subscriptions := service.NewSubscriptionService(
		store,
		provider,
		auth.NewJWTVerifier("test-secret"),
		billing.StripeConfig{StarterPriceID: "price_starter", ProPriceID: proPriceID},
		"https://bizznex.test/",
		rec,
		logger,
	)
	return &webhookFixture{
		store:    store,
		provider: provider,
		events:   rec,
		handler:  NewStripeHandler(provider, subscriptions, logger),
	}
}

func checkoutPayload(t *testing.T, userID string) []byte {
	t.Helper()
	metadata := map[string]string{"priceId": proPriceID}
	if userID != "" {
		metadata["userId"] = userID
	}
	b, err := json.Marshal(map[string]any{
		"id":   "evt_1",
		"type": domain.EventCheckoutSessionCompleted,
		"data": map[string]any{
			"object": map[string]any{
				"id":               "cs_1",
				"object":           "checkout.session",
				"customer":         "cus_1",
				"subscription":     "sub_1",
				"customer_details": map[string]any{"email": "owner@acme.test"},
				"metadata":         metadata,
			},
		},
	})
	require.NoError(t, err)
	return b
}

func (f *webhookFixture) post(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	f.handler.HandleWebhook(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleWebhook_RejectsBadSignature(t *testing.T) {
	tests := []struct {
		name      string
		signature string
	}{
		{name: "missing signature", signature: ""},
		{name: "wrong signature", signature: "t=1,v1=forged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWebhookFixture(t)

			rec := f.post(checkoutPayload(t, "user-1"), tt.signature)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeBody(t, rec)["message"])

			_, err := f.store.GetProfile(context.Background(), "user-1")
			assert.True(t, repository.IsNotFound(err), "profile must not be created")
			assert.Empty(t, f.events.Subjects())
		})
	}
}

func TestHandleWebhook_CheckoutCompleted(t *testing.T) {
	f := newWebhookFixture(t)

	rec := f.post(checkoutPayload(t, "user-1"), f.provider.ValidSignature)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"received": true}, decodeBody(t, rec))

	profile, err := f.store.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, profile.SubscriptionStatus)
	assert.Equal(t, domain.SubscriptionStatusActive, *profile.SubscriptionStatus)
	require.NotNil(t, profile.Plan)
	assert.Equal(t, domain.PlanPro, *profile.Plan)
	assert.Equal(t, []string{events.SubjectSubscriptionChanged}, f.events.Subjects())
}

func TestHandleWebhook_ReplayIsAccepted(t *testing.T) {
	f := newWebhookFixture(t)
	payload := checkoutPayload(t, "user-1")

	require.Equal(t, http.StatusOK, f.post(payload, f.provider.ValidSignature).Code)
	require.Equal(t, http.StatusOK, f.post(payload, f.provider.ValidSignature).Code)

	profile, err := f.store.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, *profile.Plan)
}

func TestHandleWebhook_IgnoredEventType(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{"id":"evt_2","type":"invoice.created","data":{"object":{}}}`)

	rec := f.post(payload, f.provider.ValidSignature)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.events.Subjects())
}

func TestHandleWebhook_HandlerFailure(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *webhookFixture)
		payload func(t *testing.T) []byte
	}{
		{
			name:    "missing user id",
			setup:   func(f *webhookFixture) {},
			payload: func(t *testing.T) []byte { return checkoutPayload(t, "") },
		},
		{
			name: "store outage",
			setup: func(f *webhookFixture) {
				f.store.FailOn["UpsertProfileSubscription"] = errors.New("connection refused")
			},
			payload: func(t *testing.T) []byte { return checkoutPayload(t, "user-1") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWebhookFixture(t)
			tt.setup(f)

			rec := f.post(tt.payload(t), f.provider.ValidSignature)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decodeBody(t, rec)
			assert.NotEmpty(t, body["message"])
			assert.NotContains(t, body["message"], "connection refused")
			assert.Empty(t, f.events.Subjects())
		})
	}
}

func TestHandleWebhook_RejectsNonPost(t *testing.T) {
	f := newWebhookFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/webhooks/stripe", nil)
	rec := httptest.NewRecorder()

	f.handler.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.provider.Calls())
}
