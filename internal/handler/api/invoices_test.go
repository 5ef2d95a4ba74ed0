package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository"
	"github.com/dukerupert/bizznex/internal/storage"
)

func invoiceBody(clientID uuid.UUID, extra map[string]any) map[string]any {
	body := map[string]any{
		"client_id":    clientID,
		"invoice_date": "2024-03-15",
		"status":       domain.InvoiceStatusPending,
		"items": []map[string]any{
			{"description": "Gutter cleaning", "quantity": 2, "rate": "50.00"},
			{"description": "Downspout flush", "quantity": 1, "rate": "25"},
		},
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func (f *apiFixture) createInvoice(t *testing.T, body map[string]any) domain.InvoiceDetail {
	t.Helper()
	rec := serve(f.invoices.Create, newRequest(t, http.MethodPost, "/api/invoices", body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[domain.InvoiceDetail](t, rec)
}

func TestInvoiceHandler_Create(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "billing@acme.test")

	detail := f.createInvoice(t, invoiceBody(acme.ID, nil))

	assert.Equal(t, "INV-202403-001", detail.Invoice.InvoiceNumber)
	assert.True(t, decimal.NewFromInt(125).Equal(detail.Invoice.TotalAmount), "total %s", detail.Invoice.TotalAmount)
	assert.Len(t, detail.Items, 2)

	rec := serve(f.invoices.Get, withID(newRequest(t, http.MethodGet, "/api/invoices/"+detail.Invoice.ID.String(), nil), detail.Invoice.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[domain.InvoiceDetail](t, rec)
	assert.Equal(t, detail.Invoice.ID, got.Invoice.ID)

	rec = serve(f.invoices.List, newRequest(t, http.MethodGet, query("/api/invoices", "client_id", acme.ID.String()), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]repository.Invoice](t, rec), 1)
}

func TestInvoiceHandler_CreateValidation(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "")

	tests := []struct {
		name      string
		body      map[string]any
		wantField string
	}{
		{
			name:      "no items",
			body:      invoiceBody(acme.ID, map[string]any{"items": []any{}}),
			wantField: "items",
		},
		{
			name: "item without description",
			body: invoiceBody(acme.ID, map[string]any{"items": []map[string]any{
				{"quantity": 1, "rate": "10"},
			}}),
			wantField: "items[0].description",
		},
		{
			name: "tax rate above 100",
			body: invoiceBody(acme.ID, map[string]any{"tax_items": []map[string]any{
				{"name": "GST", "rate": "150"},
			}}),
			wantField: "tax_items[0].rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(f.invoices.Create, newRequest(t, http.MethodPost, "/api/invoices", tt.body))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, decodeEnvelope(t, rec).Fields, tt.wantField)
		})
	}

	rec := serve(f.invoices.Create, newRequest(t, http.MethodPost, "/api/invoices", invoiceBody(uuid.New(), nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvoiceHandler_RecordPayment(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "")
	detail := f.createInvoice(t, invoiceBody(acme.ID, nil))

	pay := func(amount string) *http.Request {
		return newRequest(t, http.MethodPost, "/api/update-invoice-status", map[string]any{
			"invoice_id":     detail.Invoice.ID,
			"amount":         amount,
			"payment_date":   "2024-03-20",
			"payment_method": domain.PaymentMethodOther,
		})
	}

	rec := serve(f.invoices.RecordPayment, pay("500"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Fields, "amount")
	assert.Contains(t, env.Message, "125.00")

	rec = serve(f.invoices.RecordPayment, pay("100"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	partial := decodeData[repository.Invoice](t, rec)
	assert.Equal(t, domain.InvoiceStatusPending, partial.Status)
	assert.True(t, decimal.NewFromInt(100).Equal(partial.AmountPaid))

	rec = serve(f.invoices.RecordPayment, pay("25"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.InvoiceStatusPaid, decodeData[repository.Invoice](t, rec).Status)

	rec = serve(f.invoices.RecordPayment, pay("1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvoiceHandler_RecordPaymentRequiresPositiveAmount(t *testing.T) {
	f := newAPIFixture(t)

	rec := serve(f.invoices.RecordPayment, newRequest(t, http.MethodPost, "/api/update-invoice-status", map[string]any{
		"invoice_id": uuid.New(),
		"amount":     "0",
	}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Fields, "amount")
}

func TestInvoiceHandler_GenerateDocument_StoredInvoice(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "")
	detail := f.createInvoice(t, invoiceBody(acme.ID, nil))

	rec := serve(f.invoices.GenerateDocument, newRequest(t, http.MethodPost, "/api/generate-invoice-pdf", map[string]any{
		"invoice_id": detail.Invoice.ID,
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-INV-202403-001.pdf")
	assert.Equal(t, "%PDF-1.3 INV-202403-001", rec.Body.String())

	exists, err := f.archive.Exists(context.Background(), storage.InvoiceKey("INV-202403-001"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInvoiceHandler_GenerateDocument_Draft(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "")

	rec := serve(f.invoices.GenerateDocument, newRequest(t, http.MethodPost, "/api/generate-invoice-pdf",
		invoiceBody(acme.ID, map[string]any{"status": nil})))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get(PersistErrorHeader))
	require.Len(t, f.renderer.rendered, 1)
	assert.Equal(t, "INV-202403-001", f.renderer.rendered[0].InvoiceNumber)

	invoices, err := f.store.ListInvoices(context.Background(), repository.ListInvoicesParams{})
	require.NoError(t, err)
	assert.Empty(t, invoices, "drafts without save are not stored")
	assert.Empty(t, f.archive.keys(), "drafts are not archived")
}

func TestInvoiceHandler_GenerateDocument_Save(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "")

	rec := serve(f.invoices.GenerateDocument, newRequest(t, http.MethodPost, "/api/generate-invoice-pdf",
		invoiceBody(acme.ID, map[string]any{"save": true})))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get(PersistErrorHeader))

	invoices, err := f.store.ListInvoices(context.Background(), repository.ListInvoicesParams{})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, []string{storage.InvoiceKey(invoices[0].InvoiceNumber)}, f.archive.keys())
}

func TestInvoiceHandler_GenerateDocument_SaveFailureStillRenders(t *testing.T) {
	tests := []struct {
		name   string
		failOn []string
	}{
		{"insert fails", []string{"CreateInvoice"}},
		{"store unreachable", []string{"GetClient", "CreateInvoice", "MaxInvoiceSequence"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			acme := f.seedClient(t, "Acme", "")
			for _, method := range tt.failOn {
				f.store.FailOn[method] = errors.New("connection refused")
			}

			rec := serve(f.invoices.GenerateDocument, newRequest(t, http.MethodPost, "/api/generate-invoice-pdf",
				invoiceBody(acme.ID, map[string]any{
					"save":   true,
					"client": map[string]any{"name": "Acme", "email": "billing@acme.test"},
				})))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get(PersistErrorHeader))
			assert.NotContains(t, rec.Header().Get(PersistErrorHeader), "connection refused")
			assert.Empty(t, f.archive.keys())

			require.Len(t, f.renderer.rendered, 1)
			doc := f.renderer.rendered[0]
			assert.Equal(t, "DRAFT-20240315", doc.InvoiceNumber)
			assert.Equal(t, "Acme", doc.Client.Name)
			assert.Equal(t, "billing@acme.test", doc.Client.Email)
			assert.True(t, doc.Total.Equal(decimal.RequireFromString("125")), "total %s", doc.Total)
		})
	}
}

func TestInvoiceHandler_GenerateDocument_PreviewWithoutStore(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "")
	f.store.FailOn["GetClient"] = errors.New("connection refused")
	f.store.FailOn["MaxInvoiceSequence"] = errors.New("connection refused")

	rec := serve(f.invoices.GenerateDocument, newRequest(t, http.MethodPost, "/api/generate-invoice-pdf",
		invoiceBody(acme.ID, map[string]any{"client": map[string]any{"name": "Acme Preview"}})))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get(PersistErrorHeader))
	require.Len(t, f.renderer.rendered, 1)
	assert.Equal(t, "DRAFT-20240315", f.renderer.rendered[0].InvoiceNumber)
	assert.Equal(t, "Acme Preview", f.renderer.rendered[0].Client.Name)
}

func TestInvoiceHandler_GenerateDocument_NumberingFailureUsesProvisional(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "")
	f.store.FailOn["MaxInvoiceSequence"] = errors.New("statement timeout")

	rec := serve(f.invoices.GenerateDocument, newRequest(t, http.MethodPost, "/api/generate-invoice-pdf",
		invoiceBody(acme.ID, nil)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, f.renderer.rendered, 1)
	assert.Equal(t, "DRAFT-20240315", f.renderer.rendered[0].InvoiceNumber)
	assert.Equal(t, "Acme", f.renderer.rendered[0].Client.Name)
}

func TestInvoiceHandler_GenerateDocument_SaveRejectsUnknownClient(t *testing.T) {
	f := newAPIFixture(t)

	rec := serve(f.invoices.GenerateDocument, newRequest(t, http.MethodPost, "/api/generate-invoice-pdf",
		invoiceBody(uuid.New(), map[string]any{"save": true})))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.renderer.rendered)
}

func TestInvoiceHandler_GenerateDocument_ArchiveFailureIgnored(t *testing.T) {
	f := newAPIFixture(t)
	f.archive.err = errors.New("bucket unavailable")
	acme := f.seedClient(t, "Acme", "")
	detail := f.createInvoice(t, invoiceBody(acme.ID, nil))

	rec := serve(f.invoices.GenerateDocument, newRequest(t, http.MethodPost, "/api/generate-invoice-pdf", map[string]any{
		"invoice_id": detail.Invoice.ID,
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvoiceHandler_Delete(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "")
	detail := f.createInvoice(t, invoiceBody(acme.ID, nil))

	rec := serve(f.invoices.Delete, withID(newRequest(t, http.MethodDelete, "/api/invoices/"+detail.Invoice.ID.String(), nil), detail.Invoice.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(f.invoices.Get, withID(newRequest(t, http.MethodGet, "/api/invoices/"+detail.Invoice.ID.String(), nil), detail.Invoice.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
