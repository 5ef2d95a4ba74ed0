package billing

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v83/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func TestStripeConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  StripeConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: StripeConfig{
				APIKey:         "sk_test_abc",
				WebhookSecret:  "whsec_abc",
				StarterPriceID: "price_starter",
				ProPriceID:     "price_pro",
			},
		},
		{
			name:    "missing api key",
			config:  StripeConfig{WebhookSecret: "whsec_abc", StarterPriceID: "a", ProPriceID: "b"},
			wantErr: true,
		},
		{
			name:    "missing webhook secret",
			config:  StripeConfig{APIKey: "sk_test_abc", StarterPriceID: "a", ProPriceID: "b"},
			wantErr: true,
		},
		{
			name:    "missing price ids",
			config:  StripeConfig{APIKey: "sk_test_abc", WebhookSecret: "whsec_abc"},
			wantErr: true,
		},
		{
			name:    "publishable key",
			config:  StripeConfig{APIKey: "pk_test_abc", WebhookSecret: "whsec_abc", StarterPriceID: "a", ProPriceID: "b"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.name == "missing price ids" {
				assert.ErrorContains(t, err, "STRIPE_STARTER_PRICE_ID")
				assert.ErrorContains(t, err, "STRIPE_PRO_PRICE_ID")
			}
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("test mode detection", func(t *testing.T) {
		assert.True(t, (&StripeConfig{APIKey: "sk_test_123"}).IsTestMode())
		assert.False(t, (&StripeConfig{APIKey: "sk_live_123"}).IsTestMode())
		assert.False(t, (&StripeConfig{APIKey: "sk"}).IsTestMode())
	})

	t.Run("known prices", func(t *testing.T) {
		cfg := StripeConfig{StarterPriceID: "price_starter", ProPriceID: "price_pro"}
		assert.True(t, cfg.IsKnownPrice("price_starter"))
		assert.True(t, cfg.IsKnownPrice("price_pro"))
		assert.False(t, cfg.IsKnownPrice("unknown"))
		assert.False(t, cfg.IsKnownPrice(""))
	})
}

func TestStripeProviderVerifyWebhook(t *testing.T) {
	provider, err := NewStripeProvider(StripeConfig{APIKey: "sk_test_unit", WebhookSecret: testWebhookSecret})
	require.NoError(t, err)

	payload := []byte(`{
		"id": "evt_test_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_1", "object": "checkout.session", "metadata": {"userId": "user_1"}}}
	}`)

	t.Run("accepts valid signature", func(t *testing.T) {
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   payload,
			Secret:    testWebhookSecret,
			Timestamp: time.Now(),
		})

		event, err := provider.VerifyWebhook(signed.Payload, signed.Header)
		require.NoError(t, err)
		assert.Equal(t, "evt_test_1", event.ID)
		assert.Equal(t, "checkout.session.completed", event.Type)

		session, err := ParseCheckoutSession(event.Data)
		require.NoError(t, err)
		assert.Equal(t, "cs_test_1", session.ID)
		assert.Equal(t, "user_1", session.Metadata["userId"])
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   payload,
			Secret:    "whsec_other",
			Timestamp: time.Now(),
		})

		_, err := provider.VerifyWebhook(signed.Payload, signed.Header)
		assert.ErrorIs(t, err, ErrInvalidWebhookSignature)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		_, err := provider.VerifyWebhook(payload, "")
		assert.ErrorIs(t, err, ErrInvalidWebhookSignature)
	})
}

func TestNewStripeProviderRequiresKey(t *testing.T) {
	_, err := NewStripeProvider(StripeConfig{})
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestParseCheckoutSession(t *testing.T) {
	data := json.RawMessage(`{
		"id": "cs_1",
		"customer": "cus_1",
		"subscription": "sub_1",
		"customer_details": {"email": "buyer@example.com"},
		"metadata": {"userId": "user_1", "priceId": "price_pro"}
	}`)

	got, err := ParseCheckoutSession(data)
	require.NoError(t, err)
	assert.Equal(t, &CompletedCheckout{
		ID:             "cs_1",
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		CustomerEmail:  "buyer@example.com",
		Metadata:       map[string]string{"userId": "user_1", "priceId": "price_pro"},
	}, got)

	_, err = ParseCheckoutSession(json.RawMessage(`not json`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestParseSubscription(t *testing.T) {
	data := json.RawMessage(`{
		"id": "sub_1",
		"customer": "cus_1",
		"status": "past_due",
		"items": {"object": "list", "data": [{"id": "si_1", "price": {"id": "price_pro"}}]}
	}`)

	got, err := ParseSubscription(data)
	require.NoError(t, err)
	assert.Equal(t, &SubscriptionState{
		ID:         "sub_1",
		CustomerID: "cus_1",
		Status:     "past_due",
		PriceID:    "price_pro",
	}, got)
}

func TestMockProviderVerifyWebhook(t *testing.T) {
	m := NewMockProvider()
	body := []byte(fmt.Sprintf(`{"id":"evt_1","type":%q,"data":{"object":{"id":"sub_1"}}}`, "customer.subscription.deleted"))

	event, err := m.VerifyWebhook(body, "valid")
	require.NoError(t, err)
	assert.Equal(t, "customer.subscription.deleted", event.Type)
	assert.JSONEq(t, `{"id":"sub_1"}`, string(event.Data))

	_, err = m.VerifyWebhook(body, "forged")
	assert.ErrorIs(t, err, ErrInvalidWebhookSignature)
	assert.Equal(t, []string{"VerifyWebhook", "VerifyWebhook"}, m.Calls())
}

func TestStripeError_Retryable(t *testing.T) {
	assert.True(t, (&StripeError{Code: "rate_limit"}).Retryable())
	assert.True(t, (&StripeError{StatusCode: 503}).Retryable())
	assert.False(t, (&StripeError{Code: "resource_missing", StatusCode: 404}).Retryable())
	assert.Equal(t, "stripe: boom (code: x)", (&StripeError{Message: "boom", Code: "x"}).Error())
}
