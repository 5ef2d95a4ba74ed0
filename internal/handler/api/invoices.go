package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/handler"
	"github.com/dukerupert/bizznex/internal/middleware"
	"github.com/dukerupert/bizznex/internal/repository"
	"github.com/dukerupert/bizznex/internal/service"
	"github.com/dukerupert/bizznex/internal/storage"
	"github.com/dukerupert/bizznex/internal/telemetry"
)

// PersistErrorHeader carries the reason a document was rendered without
// being saved.
const PersistErrorHeader = "X-Invoice-Persist-Error"

// InvoiceHandler serves the invoice, payment and document endpoints.
type InvoiceHandler struct {
	invoices domain.InvoiceService
	clients  domain.ClientService
	archive  storage.Storage
	logger   *slog.Logger
	now      func() time.Time
}

// NewInvoiceHandler creates a new invoice handler. archive may be nil, in
// which case rendered documents are not archived.
func NewInvoiceHandler(
	invoices domain.InvoiceService,
	clients domain.ClientService,
	archive storage.Storage,
	logger *slog.Logger,
) *InvoiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceHandler{
		invoices: invoices,
		clients:  clients,
		archive:  archive,
		logger:   logger,
		now:      time.Now,
	}
}

// List handles GET /api/invoices with optional ?client_id=, ?status=,
// ?limit= and ?offset=, or ?id= for a single invoice.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok, _ := handler.OptionalID(r); ok {
		h.Get(w, r)
		return
	}

	params := domain.ListInvoicesParams{Status: queryString(r, "status")}
	var err error
	if params.ClientID, err = queryUUID(r, "client_id"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if params.Limit, err = queryInt32(r, "limit"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if params.Offset, err = queryInt32(r, "offset"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	invoices, err := h.invoices.ListInvoices(r.Context(), params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, invoices)
}

// Get handles GET /api/invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	detail, err := h.invoices.GetInvoice(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, detail)
}

// Create handles POST /api/invoices.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("invoice.create", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	detail, err := h.invoices.CreateInvoice(r.Context(), req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Created(w, detail)
}

// Delete handles DELETE /api/invoices/{id}.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.invoices.DeleteInvoice(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, map[string]string{"id": id.String()})
}

// RecordPayment handles POST /api/update-invoice-status.
func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("invoice.record_payment", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	invoice, err := h.invoices.RecordPayment(r.Context(), req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, invoice)
}

// GenerateDocument handles POST /api/generate-invoice-pdf.
//
// With invoice_id the stored invoice is rendered. Otherwise the body is a
// draft: with save:true it is stored first, and a failed save is reported
// in the X-Invoice-Persist-Error header while the document is still
// rendered from the draft.
func (h *InvoiceHandler) GenerateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx, h.logger)

	var req DocumentRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var detail *domain.InvoiceDetail
	persisted := false

	if req.InvoiceID != nil {
		d, err := h.invoices.GetInvoice(ctx, *req.InvoiceID)
		if err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		detail, persisted = d, true
	} else {
		if err := validateRequest("invoice.document", &req.InvoiceRequest); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		params := req.params()
		if params.Status == "" {
			params.Status = domain.InvoiceStatusDraft
		}

		storeDown := false
		if req.Save {
			d, err := h.invoices.CreateInvoice(ctx, params)
			if err == nil {
				detail, persisted = d, true
			} else if domain.ErrorCode(err) != domain.EINTERNAL {
				handler.ErrorResponse(w, r, err)
				return
			} else {
				logger.ErrorContext(ctx, "invoice save failed, rendering draft", "error", err)
				telemetry.Capture(ctx, err, map[string]any{"op": "invoice.document"})
				w.Header().Set(PersistErrorHeader, domain.ErrorMessage(err))
				storeDown = true
			}
		}

		if detail == nil {
			d, err := h.draft(r, params, req.Client, storeDown)
			if err != nil {
				handler.ErrorResponse(w, r, err)
				return
			}
			detail = d
		}
	}

	doc, err := h.invoices.RenderDocument(ctx, detail)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if persisted {
		h.archiveDocument(r, detail.Invoice.InvoiceNumber, doc)
	}

	filename := fmt.Sprintf("invoice-%s.pdf", detail.Invoice.InvoiceNumber)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		logger.WarnContext(ctx, "failed to write document", "error", err)
	}
}

// draft builds an unsaved invoice for rendering. Drafts without a number
// get the next free one provisionally. With storeDown set, or once a store
// read fails, nothing more is read: the client comes from the request's
// snapshot and the number falls back to DRAFT-YYYYMMDD.
func (h *InvoiceHandler) draft(r *http.Request, params domain.CreateInvoiceParams, snapshot *ClientSnapshot, storeDown bool) (*domain.InvoiceDetail, error) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx, h.logger)

	now := h.now()
	at := params.InvoiceDate
	if at.IsZero() {
		at = now
	}

	var client *repository.Client
	if !storeDown {
		c, err := h.clients.GetClient(ctx, params.ClientID)
		switch {
		case err == nil:
			client = c
		case domain.ErrorCode(err) == domain.EINTERNAL:
			logger.WarnContext(ctx, "client lookup failed, rendering from request", "error", err)
			storeDown = true
		default:
			return nil, err
		}
	}
	if client == nil {
		client = snapshot.client(params.ClientID)
	}

	if params.InvoiceNumber == "" && !storeDown {
		number, err := h.invoices.NextInvoiceNumber(ctx, at)
		if err != nil {
			logger.WarnContext(ctx, "invoice numbering failed, using provisional number", "error", err)
		}
		params.InvoiceNumber = number
	}
	if params.InvoiceNumber == "" {
		params.InvoiceNumber = provisionalNumber(at)
	}

	return service.DraftDetail(params, client, now)
}

func provisionalNumber(at time.Time) string {
	return "DRAFT-" + at.Format("20060102")
}

// archiveDocument stores the rendered PDF. Failures are logged only.
func (h *InvoiceHandler) archiveDocument(r *http.Request, number string, doc []byte) {
	if h.archive == nil {
		return
	}
	ctx := r.Context()
	key := storage.InvoiceKey(number)
	url, err := h.archive.Put(ctx, key, bytes.NewReader(doc), "application/pdf")
	if err != nil {
		middleware.GetLogger(ctx, h.logger).WarnContext(ctx, "failed to archive invoice document", "key", key, "error", err)
		return
	}
	middleware.GetLogger(ctx, h.logger).DebugContext(ctx, "invoice document archived", "key", key, "url", url)
}
