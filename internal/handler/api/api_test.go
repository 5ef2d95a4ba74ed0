package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/email"
	"github.com/dukerupert/bizznex/internal/events"
	"github.com/dukerupert/bizznex/internal/pdf"
	"github.com/dukerupert/bizznex/internal/repository"
	"github.com/dukerupert/bizznex/internal/repository/memstore"
	"github.com/dukerupert/bizznex/internal/service"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeRenderer struct {
	mu       sync.Mutex
	rendered []pdf.InvoiceData
}

func (r *fakeRenderer) Render(data pdf.InvoiceData) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, data)
	return []byte("%PDF-1.3 " + data.InvoiceNumber), nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []*email.Email
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg *email.Email) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-" + uuid.NewString(), nil
}

// fakeArchive is an in-memory storage.Storage.
type fakeArchive struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{files: map[string][]byte{}}
}

func (a *fakeArchive) Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	b, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[key] = b
	return a.URL(key), nil
}

func (a *fakeArchive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.files[key]
	if !ok {
		return nil, domain.Errorf(domain.ENOTFOUND, "archive.get", "not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (a *fakeArchive) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.files, key)
	return nil
}

func (a *fakeArchive) URL(key string) string { return "/files/" + key }

func (a *fakeArchive) Exists(ctx context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.files[key]
	return ok, nil
}

func (a *fakeArchive) keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, len(a.files))
	for k := range a.files {
		keys = append(keys, k)
	}
	return keys
}

// ============================================================================
// Fixture
// ============================================================================

type apiFixture struct {
	store    *memstore.Store
	renderer *fakeRenderer
	sender   *fakeSender
	archive  *fakeArchive
	events   *events.Recorder

	clients   *ClientHandler
	jobs      *JobHandler
	invoices  *InvoiceHandler
	emails    *EmailHandler
	equipment *EquipmentHandler
	expenses  *ExpenseHandler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	renderer := &fakeRenderer{}
	sender := &fakeSender{}
	archive := newFakeArchive()
	rec := &events.Recorder{}

	clientSvc := service.NewClientService(store, logger)
	invoiceSvc := service.NewInvoiceService(store, renderer, rec, service.InvoiceServiceConfig{
		Company:  pdf.CompanyData{Name: "Bizznex Services"},
		Currency: "USD",
	}, logger)

	templates, err := email.LoadTemplates()
	require.NoError(t, err)
	notifications := service.NewNotificationService(store, sender, templates, invoiceSvc, service.NotificationConfig{
		FromAddress: "billing@bizznex.test",
		FromName:    "Bizznex Billing",
		CompanyName: "Bizznex Services",
	}, logger)

	return &apiFixture{
		store:     store,
		renderer:  renderer,
		sender:    sender,
		archive:   archive,
		events:    rec,
		clients:   NewClientHandler(clientSvc),
		jobs:      NewJobHandler(service.NewJobService(store, logger)),
		invoices:  NewInvoiceHandler(invoiceSvc, clientSvc, archive, logger),
		emails:    NewEmailHandler(notifications),
		equipment: NewEquipmentHandler(service.NewEquipmentService(store, logger)),
		expenses:  NewExpenseHandler(service.NewExpenseService(store, logger)),
	}
}

func (f *apiFixture) seedClient(t *testing.T, name, address string) repository.Client {
	t.Helper()
	c, err := f.store.CreateClient(context.Background(), repository.CreateClientParams{
		Name:  name,
		Email: address,
		Type:  domain.ClientTypeCommercial,
	})
	require.NoError(t, err)
	return c
}

// ============================================================================
// Request helpers
// ============================================================================

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields"`
}

func newRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func withID(req *http.Request, id uuid.UUID) *http.Request {
	req.SetPathValue("id", id.String())
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, "expected success, got %s", rec.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func query(path string, kv ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return path + "?" + v.Encode()
}
