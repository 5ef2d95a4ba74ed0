package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing.
// Simulates checkout and webhook flows without calling Stripe API.
type MockProvider struct {
	mu sync.Mutex

	// CreateCheckoutSessionFunc allows customizing checkout creation behavior
	CreateCheckoutSessionFunc func(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// CreatePortalSessionFunc allows customizing portal session behavior
	CreatePortalSessionFunc func(ctx context.Context, params CreatePortalSessionParams) (*PortalSession, error)

	// VerifyWebhookFunc allows customizing webhook verification behavior
	VerifyWebhookFunc func(payload []byte, signature string) (*Event, error)

	// ValidSignature is the only signature the default VerifyWebhook accepts.
	ValidSignature string

	// CheckoutSessions stores created sessions for assertions
	CheckoutSessions []CreateCheckoutSessionParams

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		ValidSignature: "valid",
		CallLog:        []string{},
	}
}

// CreateCheckoutSession records the request and returns a fake session.
func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateCheckoutSession(%s)", params.PriceID))
	m.mu.Unlock()

	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}

	m.mu.Lock()
	m.CheckoutSessions = append(m.CheckoutSessions, params)
	m.mu.Unlock()

	id := "cs_test_" + uuid.New().String()
	return &CheckoutSession{
		ID:  id,
		URL: "https://checkout.stripe.test/c/pay/" + id,
	}, nil
}

// CreatePortalSession returns a fake portal URL.
func (m *MockProvider) CreatePortalSession(ctx context.Context, params CreatePortalSessionParams) (*PortalSession, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreatePortalSession(%s)", params.CustomerID))
	m.mu.Unlock()

	if m.CreatePortalSessionFunc != nil {
		return m.CreatePortalSessionFunc(ctx, params)
	}

	id := "bps_test_" + uuid.New().String()
	return &PortalSession{ID: id, URL: "https://billing.stripe.test/p/session/" + id}, nil
}

// VerifyWebhook accepts payloads signed with ValidSignature and decodes
// them as {"id","type","data":{"object":...}}.
func (m *MockProvider) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, "VerifyWebhook")
	m.mu.Unlock()

	if m.VerifyWebhookFunc != nil {
		return m.VerifyWebhookFunc(payload, signature)
	}

	if signature != m.ValidSignature {
		return nil, ErrInvalidWebhookSignature
	}

	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return &Event{ID: raw.ID, Type: raw.Type, Data: raw.Data.Object}, nil
}

// Calls returns a copy of the call log.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CallLog...)
}
